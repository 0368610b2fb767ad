package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mentorcrm/chat/internal/cache"
)

// Resource names a list endpoint whose responses are cached.
type Resource string

const (
	ResourceMentors      Resource = "mentors"
	ResourceMentorados   Resource = "mentorados"
	ResourceAssessments  Resource = "assessments"
	ResourceTools        Resource = "tools"
	ResourceAgents       Resource = "agents"
	ResourceLLMProviders Resource = "llm-providers"
)

var resourcePaths = map[Resource]string{
	ResourceMentors:      "/api/admin/mentors",
	ResourceMentorados:   "/api/admin/mentorados",
	ResourceAssessments:  "/api/assessments",
	ResourceTools:        "/api/config/tools",
	ResourceAgents:       "/api/config/agents",
	ResourceLLMProviders: "/api/admin/config/llm",
}

// Resources lists the cacheable resources in display order.
func Resources() []Resource {
	return []Resource{
		ResourceMentors,
		ResourceMentorados,
		ResourceAssessments,
		ResourceTools,
		ResourceAgents,
		ResourceLLMProviders,
	}
}

// List fetches the items of r with stale-while-revalidate semantics. Items
// are returned undecoded; the platform owns their schemas.
func (c *Client) List(ctx context.Context, r Resource, emit func([]json.RawMessage)) ([]json.RawMessage, error) {
	path, ok := resourcePaths[r]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", r)
	}
	return cache.Revalidate(ctx, c.cache, "list:"+string(r), func(ctx context.Context) ([]json.RawMessage, error) {
		var items []json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, &items); err != nil {
			return nil, err
		}
		return items, nil
	}, emit)
}
