// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes family tree tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kinship/internal/apperr"
	"github.com/starford/kinship/internal/familyservice"
	"github.com/starford/kinship/internal/familytree"
)

const defaultSearchLimit = 20

// Server wraps the MCP server with family tree tools.
type Server struct {
	mcp *server.MCPServer
	svc *familyservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *familyservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Kinship",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_person",
		mcp.WithDescription("Add a person to the family tree. Names are exact and case-sensitive."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new person")),
	), s.addPerson)

	s.mcp.AddTool(mcp.NewTool("add_relationship",
		mcp.WithDescription("Attach a relationship label to a person. The edge points at the person themself; "+
			"use connect_persons to relate two people."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Existing person")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Relationship label, e.g. son")),
	), s.addRelationship)

	s.mcp.AddTool(mcp.NewTool("connect_persons",
		mcp.WithDescription("Record name1 as the relationship of name2, e.g. (Al, father, Bob) means Al is Bob's father. "+
			"Both persons must exist."),
		mcp.WithString("name1", mcp.Required(), mcp.Description("Person being described")),
		mcp.WithString("relationship", mcp.Required(), mcp.Description("son, daughter, wife, father or any label")),
		mcp.WithString("name2", mcp.Required(), mcp.Description("Person that holds the relationship")),
	), s.connectPersons)

	s.mcp.AddTool(mcp.NewTool("count_relationships",
		mcp.WithDescription("Count a person's relationships of one exact type (son, daughter, wife, ...)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Person to inspect")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Relationship label to count")),
	), s.countRelationships)

	s.mcp.AddTool(mcp.NewTool("father_of",
		mcp.WithDescription("Return the father of a person, if one was recorded."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Person to inspect")),
	), s.fatherOf)

	s.mcp.AddTool(mcp.NewTool("list_people",
		mcp.WithDescription("List every person with the number of relationships they hold."),
	), s.listPeople)

	s.mcp.AddTool(mcp.NewTool("search_people",
		mcp.WithDescription("Search people by name or relationship label."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPeople)

	s.mcp.AddTool(mcp.NewTool("get_relatives",
		mcp.WithDescription("Find the people whose relationships point at the given person."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Person to find relatives of")),
	), s.getRelatives)

	s.mcp.AddResource(
		mcp.NewResource(FileFormatURI, "Family File Format",
			mcp.WithResourceDescription("Record layout of the family tree file and the meaning of each tool."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFileFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) addPerson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AddPerson(ctx, name); err != nil {
		return toolError(err, name), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Person %s added.", name)), nil
}

func (s *Server) addRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	relType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AddRelationship(ctx, name, relType); err != nil {
		return toolError(err, name), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Relationship '%s' added for %s.", relType, name)), nil
}

func (s *Server) connectPersons(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name1, err := req.RequireString("name1")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	relationship, err := req.RequireString("relationship")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name2, err := req.RequireString("name2")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Connect(ctx, name1, relationship, name2); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("Both persons should exist."), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s connected as %s of %s.", name1, relationship, name2)), nil
}

func (s *Server) countRelationships(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	relType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CountRelationships(ctx, name, relType)
	if err != nil {
		return toolError(err, name), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", n)), nil
}

func (s *Server) fatherOf(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	father, err := s.svc.FatherOf(ctx, name)
	switch {
	case errors.Is(err, familytree.ErrNoFather):
		return mcp.NewToolResultText(fmt.Sprintf("No father found for %s.", name)), nil
	case err != nil:
		return toolError(err, name), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Father of %s is %s.", name, father)), nil
}

func (s *Server) listPeople(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListPeople(ctx))
}

func (s *Server) searchPeople(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, defaultSearchLimit)
	if err != nil {
		if familyservice.IsIndexDisabled(err) {
			return mcp.NewToolResultError("search is unavailable: the index is disabled"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getRelatives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rels, err := s.svc.Relatives(ctx, name)
	if err != nil {
		if familyservice.IsIndexDisabled(err) {
			return mcp.NewToolResultError("relatives are unavailable: the index is disabled"), nil
		}
		return toolError(err, name), nil
	}
	if len(rels) == 0 {
		return mcp.NewToolResultText("no relatives found"), nil
	}
	lines := make([]string, 0, len(rels))
	for _, r := range rels {
		lines = append(lines, fmt.Sprintf("%s (%s)", r.Owner, r.Type))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readFileFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FileFormatURI,
			MIMEType: "text/markdown",
			Text:     FileFormatContract,
		},
	}, nil
}

// toolError renders a service error as a tool result using the menu wording
// for the outcomes a user can act on.
func toolError(err error, name string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("Person %s already exists.", name))
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Person %s does not exist.", name))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
