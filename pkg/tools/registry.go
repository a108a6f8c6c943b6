// Package tools maps tool names to typed platform operations the copilot may
// invoke. A registry is built fresh per orchestrator invocation, bound to one
// platform client.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/aep"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/llm"
)

// Definition is one registry entry. Execute closes over the platform client
// the registry was built with.
type Definition struct {
	Name        string
	Description string
	Parameters  llm.Schema
	// RequiresApproval gates side-effecting operations behind explicit
	// human confirmation.
	RequiresApproval bool
	Execute          func(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds tool definitions in registration order.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// New returns an empty registry. Most callers want NewRegistry, which also
// populates the platform tool set.
func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Duplicate or empty names return an error.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("tool definition is nil")
	}
	key := strings.TrimSpace(def.Name)
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}
	if _, exists := r.defs[key]; exists {
		return fmt.Errorf("tool %s already registered", key)
	}
	r.defs[key] = def
	r.order = append(r.order, key)
	return nil
}

// Lookup returns the definition for name if present.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Declarations projects the registry onto the name/description/parameters
// triple advertised to the model, in registration order. The executor and
// the approval flag are never part of the projection.
func (r *Registry) Declarations() []llm.ToolDeclaration {
	decls := make([]llm.ToolDeclaration, 0, len(r.order))
	for _, key := range r.order {
		def := r.defs[key]
		decls = append(decls, llm.ToolDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return decls
}

// RequiresApproval reports whether name is gated. Unknown names report
// false; callers resolve unknown tools before consulting this.
func (r *Registry) RequiresApproval(name string) bool {
	def, ok := r.defs[name]
	return ok && def.RequiresApproval
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// NewRegistry builds the full tool set over the supplied platform client.
// Construction is pure: no network calls happen until a tool executes.
func NewRegistry(client *aep.Client) *Registry {
	r := New()
	register := func(def *Definition) {
		if err := r.Register(def); err != nil {
			panic(err) // duplicate registration is a programming error
		}
	}

	// Datasets
	register(&Definition{
		Name:        "list_datasets",
		Description: "List AEP datasets with optional limit",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"limit": {Type: "number", Description: "Max datasets to return (default 20)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Datasets(ctx, argInt(args, "limit", 20))
		},
	})
	register(&Definition{
		Name:        "get_dataset",
		Description: "Get details of a specific dataset by ID",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"datasetId": {Type: "string", Description: "Dataset ID"},
		}, "datasetId"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Dataset(ctx, argString(args, "datasetId"))
		},
	})

	// Batches
	register(&Definition{
		Name:        "list_batches",
		Description: "List batches, optionally filtered by dataset",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"datasetId": {Type: "string", Description: "Optional dataset ID filter"},
			"limit":     {Type: "number", Description: "Max batches (default 50)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Batches(ctx, argString(args, "datasetId"), argInt(args, "limit", 50))
		},
	})
	register(&Definition{
		Name:        "get_batch",
		Description: "Get details of a specific batch",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"batchId": {Type: "string", Description: "Batch ID"},
		}, "batchId"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Batch(ctx, argString(args, "batchId"))
		},
	})

	// Segments
	register(&Definition{
		Name:        "list_segments",
		Description: "List segment definitions",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"limit": {Type: "number", Description: "Max segments (default 20)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.SegmentDefinitions(ctx, argInt(args, "limit", 20))
		},
	})
	register(&Definition{
		Name:        "get_segment",
		Description: "Get details of a specific segment",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"segmentId": {Type: "string", Description: "Segment ID"},
		}, "segmentId"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.SegmentDefinition(ctx, argString(args, "segmentId"))
		},
	})
	register(&Definition{
		Name:        "list_segment_jobs",
		Description: "List segment evaluation jobs",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"limit": {Type: "number", Description: "Max jobs (default 20)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.SegmentJobs(ctx, argInt(args, "limit", 20))
		},
	})
	register(&Definition{
		Name:        "create_segment",
		Description: "Create a new segment definition with PQL expression",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"name":        {Type: "string", Description: "Segment name"},
			"description": {Type: "string", Description: "Segment description"},
			"pql":         {Type: "string", Description: "PQL expression"},
		}, "name", "description", "pql"),
		RequiresApproval: true,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.CreateSegment(ctx, argString(args, "name"), argString(args, "description"), argString(args, "pql"))
		},
	})

	// Schemas
	register(&Definition{
		Name:        "list_schemas",
		Description: "List XDM schemas from the schema registry",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"limit": {Type: "number", Description: "Max schemas (default 20)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Schemas(ctx, argInt(args, "limit", 20))
		},
	})
	register(&Definition{
		Name:        "get_schema",
		Description: "Get full details of a specific schema",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"schemaId": {Type: "string", Description: "Schema $id"},
		}, "schemaId"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Schema(ctx, argString(args, "schemaId"))
		},
	})
	register(&Definition{
		Name:        "search_schemas",
		Description: "Search schemas by title",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"query": {Type: "string", Description: "Search query"},
		}, "query"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.SearchSchemas(ctx, argString(args, "query"))
		},
	})
	register(&Definition{
		Name:        "list_field_groups",
		Description: "List XDM field groups",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.FieldGroups(ctx, 20)
		},
	})

	// Identity
	register(&Definition{
		Name:        "list_identity_namespaces",
		Description: "List all identity namespaces",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.IdentityNamespaces(ctx)
		},
	})
	register(&Definition{
		Name:        "get_identity_graph",
		Description: "Get identity graph for a given identity",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"namespace": {Type: "string", Description: "Namespace code (e.g., email, ecid)"},
			"identity":  {Type: "string", Description: "Identity value"},
		}, "namespace", "identity"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.IdentityGraph(ctx, argString(args, "namespace"), argString(args, "identity"))
		},
	})

	// Profiles
	register(&Definition{
		Name:        "lookup_profile",
		Description: "Look up a profile by identity namespace and value",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"namespace": {Type: "string", Description: "Identity namespace (e.g., email)"},
			"identity":  {Type: "string", Description: "Identity value"},
		}, "namespace", "identity"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Profile(ctx, argString(args, "namespace"), argString(args, "identity"))
		},
	})
	register(&Definition{
		Name:        "list_merge_policies",
		Description: "List profile merge policies",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.MergePolicies(ctx, 20)
		},
	})

	// Flows
	register(&Definition{
		Name:        "list_flows",
		Description: "List data flows",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"limit": {Type: "number", Description: "Max flows (default 20)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Flows(ctx, argInt(args, "limit", 20))
		},
	})
	register(&Definition{
		Name:        "get_flow",
		Description: "Get details of a specific flow",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"flowId": {Type: "string", Description: "Flow ID"},
		}, "flowId"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Flow(ctx, argString(args, "flowId"))
		},
	})
	register(&Definition{
		Name:        "get_flow_runs",
		Description: "Get runs for a specific flow",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"flowId": {Type: "string", Description: "Flow ID"},
		}, "flowId"),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.FlowRuns(ctx, argString(args, "flowId"), 5)
		},
	})

	// Sources & destinations
	register(&Definition{
		Name:        "list_source_connections",
		Description: "List source connections",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.SourceConnections(ctx)
		},
	})
	register(&Definition{
		Name:        "list_destination_connections",
		Description: "List destination connections",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.DestinationConnections(ctx)
		},
	})

	// Query service
	register(&Definition{
		Name:        "execute_query",
		Description: "Execute a SQL query against AEP Query Service",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"sql": {Type: "string", Description: "SQL query to execute"},
		}, "sql"),
		RequiresApproval: true,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.ExecuteQuery(ctx, argString(args, "sql"))
		},
	})
	register(&Definition{
		Name:        "list_queries",
		Description: "List recent queries",
		Parameters: llm.ObjectSchema(map[string]llm.Property{
			"limit": {Type: "number", Description: "Max queries (default 10)"},
		}),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Queries(ctx, argInt(args, "limit", 10))
		},
	})

	// Platform health
	register(&Definition{
		Name:        "health_check",
		Description: "Check AEP platform connectivity status",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.HealthCheck(ctx)
		},
	})
	register(&Definition{
		Name:        "system_health_summary",
		Description: "Get a comprehensive health summary of the AEP instance",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.SystemHealthSummary(ctx)
		},
	})

	// Export jobs
	register(&Definition{
		Name:        "list_export_jobs",
		Description: "List profile export jobs",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.ProfileExportJobs(ctx, 20)
		},
	})

	// Sandboxes
	register(&Definition{
		Name:        "list_sandboxes",
		Description: "List available AEP sandboxes",
		Parameters:  llm.ObjectSchema(nil),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return client.Sandboxes(ctx)
		},
	})

	return r
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// argInt reads a numeric argument; JSON numbers arrive as float64.
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
