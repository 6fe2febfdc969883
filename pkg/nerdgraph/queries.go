// Package nerdgraph holds the NerdGraph documents and input builders used by
// the operation handlers. Every caller-supplied value travels as a GraphQL
// variable; nothing is interpolated into document text.
package nerdgraph

// Alerts
const (
	PolicyCreateMutation = `mutation($accountId: Int!, $policy: AlertsPolicyInput!) {
  alertsPolicyCreate(accountId: $accountId, policy: $policy) {
    id
    name
    incidentPreference
  }
}`

	NrqlConditionCreateMutation = `mutation($accountId: Int!, $policyId: ID!, $condition: AlertsNrqlConditionStaticInput!) {
  alertsNrqlConditionStaticCreate(accountId: $accountId, policyId: $policyId, condition: $condition) {
    id
    name
    enabled
    nrql {
      query
    }
    signal {
      aggregationWindow
      evaluationOffset
    }
    terms {
      operator
      priority
      threshold
      thresholdDuration
      thresholdOccurrences
    }
  }
}`

	PoliciesQuery = `query($accountId: Int!, $cursor: String) {
  actor {
    account(id: $accountId) {
      alerts {
        policiesSearch(cursor: $cursor) {
          policies {
            id
            name
            incidentPreference
          }
          nextCursor
          totalCount
        }
      }
    }
  }
}`

	ConditionsQuery = `query($accountId: Int!, $criteria: AlertsNrqlConditionsSearchCriteriaInput, $cursor: String) {
  actor {
    account(id: $accountId) {
      alerts {
        nrqlConditionsSearch(searchCriteria: $criteria, cursor: $cursor) {
          nrqlConditions {
            id
            name
            description
            enabled
            type
            policyId
            nrql {
              query
            }
            terms {
              operator
              priority
              threshold
              thresholdDuration
              thresholdOccurrences
            }
            signal {
              aggregationWindow
              evaluationOffset
              fillOption
            }
            createdAt
            updatedAt
          }
          nextCursor
          totalCount
        }
      }
    }
  }
}`
)

const notificationErrors = `
    errors {
      __typename
      ... on AiNotificationsResponseError {
        description
        type
      }
      ... on AiNotificationsSuggestionError {
        description
        type
      }
    }`

// Notifications and workflows
const (
	DestinationCreateMutation = `mutation($accountId: Int!, $destination: AiNotificationsDestinationInput!) {
  aiNotificationsCreateDestination(accountId: $accountId, destination: $destination) {
    destination {
      id
      name
      type
      properties {
        key
        value
      }
    }` + notificationErrors + `
  }
}`

	ChannelCreateMutation = `mutation($accountId: Int!, $channel: AiNotificationsChannelInput!) {
  aiNotificationsCreateChannel(accountId: $accountId, channel: $channel) {
    channel {
      id
      name
      type
      destinationId
      product
      properties {
        key
        value
      }
    }` + notificationErrors + `
  }
}`

	WorkflowCreateMutation = `mutation($accountId: Int!, $createWorkflowData: AiWorkflowsCreateWorkflowInput!) {
  aiWorkflowsCreateWorkflow(accountId: $accountId, createWorkflowData: $createWorkflowData) {
    workflow {
      id
      name
      enrichments {
        configurations {
          ... on AiWorkflowsNrqlConfiguration {
            query
          }
        }
        id
        name
        type
      }
      destinationConfigurations {
        channelId
        name
        type
      }
      issuesFilter {
        name
        predicates {
          attribute
          operator
          values
        }
        type
      }
    }
    errors {
      description
      type
    }
  }
}`

	DestinationsQuery = `query($accountId: Int!, $cursor: String) {
  actor {
    account(id: $accountId) {
      aiNotifications {
        destinations(cursor: $cursor) {
          entities {
            id
            name
            type
            properties {
              key
              value
            }
            createdAt
            updatedAt
          }
          nextCursor
          totalCount
        }
      }
    }
  }
}`

	ChannelsQuery = `query($accountId: Int!, $cursor: String) {
  actor {
    account(id: $accountId) {
      aiNotifications {
        channels(cursor: $cursor) {
          entities {
            id
            name
            type
            destinationId
            product
            properties {
              key
              value
            }
            createdAt
            updatedAt
          }
          nextCursor
          totalCount
        }
      }
    }
  }
}`

	WorkflowsQuery = `query($accountId: Int!, $cursor: String) {
  actor {
    account(id: $accountId) {
      aiWorkflows {
        workflows(cursor: $cursor) {
          entities {
            id
            name
            destinationConfigurations {
              channelId
              name
              type
            }
            issuesFilter {
              name
              type
              predicates {
                attribute
                operator
                values
              }
            }
            enrichments {
              id
              name
              type
            }
            createdAt
            updatedAt
          }
          nextCursor
          totalCount
        }
      }
    }
  }
}`
)

const widgetNrql = `{
              nrqlQueries {
                accountId
                query
              }
            }`

// Dashboards
const (
	DashboardSearchQuery = `query($query: String!, $limit: Int, $cursor: String) {
  actor {
    entitySearch(query: $query, options: {limit: $limit}) {
      results(cursor: $cursor) {
        entities {
          ... on DashboardEntityOutline {
            name
            guid
            permalink
            createdAt
            updatedAt
          }
        }
        nextCursor
      }
    }
  }
}`

	DashboardCreateMutation = `mutation($accountId: Int!, $dashboard: DashboardInput!) {
  dashboardCreate(accountId: $accountId, dashboard: $dashboard) {
    entityResult {
      guid
      name
    }
    errors {
      description
      type
    }
  }
}`

	DashboardPagesQuery = `query($guid: EntityGuid!) {
  actor {
    entity(guid: $guid) {
      ... on DashboardEntity {
        pages {
          guid
          name
        }
      }
    }
  }
}`

	DashboardWidgetsQuery = `query($guid: EntityGuid!) {
  actor {
    entity(guid: $guid) {
      ... on DashboardEntity {
        name
        pages {
          guid
          name
          description
          widgets {
            id
            title
            visualization {
              id
            }
            configuration {
              area ` + widgetNrql + `
              bar ` + widgetNrql + `
              billboard ` + widgetNrql + `
              line ` + widgetNrql + `
              pie ` + widgetNrql + `
              table ` + widgetNrql + `
            }
          }
        }
      }
    }
  }
}`

	WidgetsAddMutation = `mutation($guid: EntityGuid!, $widgets: [DashboardWidgetInput!]!) {
  dashboardAddWidgetsToPage(guid: $guid, widgets: $widgets) {
    errors {
      description
      type
    }
  }
}`

	WidgetsUpdateMutation = `mutation($guid: EntityGuid!, $widgets: [DashboardWidgetUpdateInput!]!) {
  dashboardUpdateWidgetsInPage(guid: $guid, widgets: $widgets) {
    errors {
      description
      type
    }
  }
}`

	WidgetsDeleteMutation = `mutation($guid: EntityGuid!, $widgetIds: [String!]!) {
  dashboardDeleteWidgetsFromPage(guid: $guid, widgetIds: $widgetIds) {
    errors {
      description
      type
    }
  }
}`
)
