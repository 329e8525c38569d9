// Package resources implements MCP resource handlers for taskmem.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (taskmem://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskmem/internal/tasks"
)

// ProjectsURI addresses the projects index.
const ProjectsURI = "taskmem://projects"

// ProjectSource is the part of the task store the resources read.
type ProjectSource interface {
	Projects(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context, projectID string) (*tasks.Statistics, error)
}

// Handler manages taskmem resource endpoints.
type Handler struct {
	tasks ProjectSource
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(src ProjectSource) *Handler {
	return &Handler{tasks: src}
}

// ProjectsResource returns the MCP resource definition for the projects index.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		ProjectsURI,
		"taskmem projects",
		mcp.WithResourceDescription("Every project with tasks or task history, with task counts by status"),
		mcp.WithMIMEType("application/json"),
	)
}

// ProjectsIndex is the body of the projects resource.
type ProjectsIndex struct {
	Projects []*tasks.Statistics `json:"projects"`
	Count    int                 `json:"count"`
}

// BuildIndex collects statistics for every known project.
func BuildIndex(ctx context.Context, src ProjectSource) (*ProjectsIndex, error) {
	ids, err := src.Projects(ctx)
	if err != nil {
		return nil, err
	}
	idx := &ProjectsIndex{Projects: make([]*tasks.Statistics, 0, len(ids))}
	for _, id := range ids {
		stats, err := src.Statistics(ctx, id)
		if err != nil {
			return nil, err
		}
		idx.Projects = append(idx.Projects, stats)
	}
	idx.Count = len(idx.Projects)
	return idx, nil
}

// HandleProjects returns the projects index as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	idx, err := BuildIndex(ctx, h.tasks)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling projects: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
