package main

import (
	"context"
	"fmt"
	"log"

	"github.com/saturnines/newrelic-mcp/pkg/config"
	"github.com/saturnines/newrelic-mcp/pkg/dispatch"
	"github.com/saturnines/newrelic-mcp/pkg/handlers"
	"github.com/saturnines/newrelic-mcp/pkg/registry"
	"github.com/saturnines/newrelic-mcp/pkg/retry"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
	"go.uber.org/zap"
)

func main() {
	// Process environment wins over .env
	env, err := config.LoadEnv(".env")
	if err != nil {
		log.Fatal(err)
	}

	creds, err := config.Resolve(env, "demo/alert-policies/newrelic.yaml", config.Settings{})
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := graphql.NewClientFromCredentials(creds, graphql.WithLogger(logger))
	transport := retry.New(client, retry.DefaultConfig(creds.RetryAttempts()), retry.WithLogger(logger))

	d, err := dispatch.New(registry.Default(), handlers.All(transport, logger),
		dispatch.WithLogger(logger),
		dispatch.WithDefaultAccountID(creds.AccountID()),
	)
	if err != nil {
		log.Fatal(err)
	}

	result := d.Call(context.Background(), "list_alert_policies", nil)
	if result.IsError() {
		log.Fatal(result.ErrorMessage())
	}

	policies, _ := result["policies"].([]any)
	fmt.Printf("Found %d alert policies\n", len(policies))

	for _, p := range policies[:min(3, len(policies))] {
		policy, _ := p.(map[string]any)
		fmt.Printf("Policy: %v (%v)\n", policy["name"], policy["incidentPreference"])
	}
}
