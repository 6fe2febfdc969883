package graphql

import (
	"context"
	"fmt"
	"sync"
)

// Pager drives cursor paging over a Transport with thread safety.
type Pager struct {
	// Immutable configuration
	transport  Transport
	query      string
	variables  map[string]any
	cursorKey  string
	itemsPath  []string
	cursorPath []string

	// Mutable state (protected by mutex)
	mu      sync.Mutex
	cursor  string
	hasNext bool
	first   bool
}

// NewPager returns a Pager that re-runs query with variables[cursorKey] set
// to the cursor found at cursorPath. Items are read from itemsPath.
// Does NOT execute any requests during creation.
func NewPager(
	transport Transport,
	query string,
	variables map[string]any,
	cursorKey string,
	itemsPath, cursorPath []string,
) (*Pager, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if cursorKey == "" {
		return nil, fmt.Errorf("cursorKey cannot be empty")
	}
	if len(itemsPath) == 0 {
		return nil, fmt.Errorf("itemsPath cannot be empty")
	}
	if len(cursorPath) == 0 {
		return nil, fmt.Errorf("cursorPath cannot be empty")
	}

	vars := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		vars[k] = v
	}

	return &Pager{
		transport:  transport,
		query:      query,
		variables:  vars,
		cursorKey:  cursorKey,
		itemsPath:  itemsPath,
		cursorPath: cursorPath,
		hasNext:    true,
		first:      true,
	}, nil
}

// Next fetches the following page. It returns (nil, nil) when done.
func (p *Pager) Next(ctx context.Context) ([]any, error) {
	p.mu.Lock()
	if !p.first && !p.hasNext {
		p.mu.Unlock()
		return nil, nil
	}
	vars := make(map[string]any, len(p.variables)+1)
	for k, v := range p.variables {
		vars[k] = v
	}
	if p.cursor != "" {
		vars[p.cursorKey] = p.cursor
	}
	p.mu.Unlock()

	body, err := p.transport.Execute(ctx, p.query, vars)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.first = false

	next, _ := traverse(body, p.cursorPath...).(string)
	p.cursor = next
	p.hasNext = next != ""

	items, _ := traverse(body, p.itemsPath...).([]any)
	if items == nil {
		items = []any{}
	}
	return items, nil
}

// HasMore returns whether more pages are available (thread-safe).
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.first || p.hasNext
}

// Reset resets pagination to start from the beginning.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hasNext = true
	p.first = true
	p.cursor = ""
}

// Collect walks pages until the cursor runs out, a page comes back empty, or
// limit items are gathered. A non-positive limit means no cap.
func (p *Pager) Collect(ctx context.Context, limit int) ([]any, error) {
	all := []any{}
	for {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return all, nil
		}
		all = append(all, items...)
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if !p.HasMore() {
			return all, nil
		}
	}
}

// traverse digs into nested maps via a path of keys.
func traverse(m map[string]any, path ...string) any {
	cur := any(m)
	for _, key := range path {
		if mp, ok := cur.(map[string]any); ok {
			cur = mp[key]
		} else {
			return nil
		}
	}
	return cur
}
