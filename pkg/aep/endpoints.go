package aep

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Accept headers for the XDM schema registry. ID variants return compact
// listings; the full variant expands every field.
const (
	acceptXedID   = "application/vnd.adobe.xed-id+json"
	acceptXedFull = "application/vnd.adobe.xed-full+json"
)

const sourceConnectionSpecID = "8a9c3494-9708-43d7-ae3f-cda01e5030e1"

// Health

// HealthCheck probes platform connectivity with a minimal catalog call.
func (c *Client) HealthCheck(ctx context.Context) (map[string]any, error) {
	if _, err := c.get(ctx, "/data/foundation/catalog/datasets?limit=1"); err != nil {
		return map[string]any{"status": "unhealthy"}, nil
	}
	return map[string]any{"status": "healthy"}, nil
}

// SystemHealthSummary fans out over the core services and tolerates partial
// failure: an unreachable service reports as nil rather than failing the
// summary.
func (c *Client) SystemHealthSummary(ctx context.Context) (map[string]any, error) {
	var (
		wg                                 sync.WaitGroup
		datasets, batches, segments, flows any
	)
	wg.Add(4)
	go func() { defer wg.Done(); datasets, _ = c.Datasets(ctx, 5) }()
	go func() { defer wg.Done(); batches, _ = c.Batches(ctx, "", 5) }()
	go func() { defer wg.Done(); segments, _ = c.SegmentDefinitions(ctx, 5) }()
	go func() { defer wg.Done(); flows, _ = c.Flows(ctx, 5) }()
	wg.Wait()

	return map[string]any{
		"datasets": datasets,
		"batches":  batches,
		"segments": segments,
		"flows":    flows,
	}, nil
}

// Profiles

func (c *Client) Profile(ctx context.Context, namespace, identity string) (any, error) {
	return c.get(ctx, fmt.Sprintf(
		"/data/core/ups/access/entities?schema.name=_xdm.context.profile&entityId=%s&entityIdNS=%s",
		url.QueryEscape(identity), url.QueryEscape(namespace)))
}

func (c *Client) MergePolicies(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf("/data/core/ups/config/mergePolicies?limit=%d", orDefault(limit, 20)))
}

func (c *Client) ProfileExportJobs(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf(
		"/data/core/ups/export/jobs/?showSegmentMetrics=true&limit=%d&sort=creationTime:desc", orDefault(limit, 20)))
}

// Segments

func (c *Client) SegmentDefinitions(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf("/data/core/ups/segment/definitions?limit=%d", orDefault(limit, 20)))
}

func (c *Client) SegmentDefinition(ctx context.Context, segmentID string) (any, error) {
	return c.get(ctx, "/data/core/ups/segment/definitions/"+url.PathEscape(segmentID))
}

func (c *Client) SegmentJobs(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf("/data/core/ups/segment/jobs?limit=%d", orDefault(limit, 20)))
}

// CreateSegment posts a new PQL-backed segment definition.
func (c *Client) CreateSegment(ctx context.Context, name, description, pql string) (any, error) {
	return c.post(ctx, "/data/core/ups/segment/definitions", map[string]any{
		"name":        name,
		"description": description,
		"expression": map[string]any{
			"type":   "PQL",
			"format": "pql/text",
			"value":  pql,
		},
		"schema": map[string]any{"name": "_xdm.context.profile"},
	})
}

// Datasets & batches

func (c *Client) Datasets(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf("/data/foundation/catalog/datasets?limit=%d&orderBy=desc:created", orDefault(limit, 20)))
}

func (c *Client) Dataset(ctx context.Context, datasetID string) (any, error) {
	return c.get(ctx, "/data/foundation/catalog/datasets/"+url.PathEscape(datasetID))
}

// Batches lists recent batches, optionally filtered by dataset.
func (c *Client) Batches(ctx context.Context, datasetID string, limit int) (any, error) {
	limit = orDefault(limit, 50)
	if datasetID != "" {
		return c.get(ctx, fmt.Sprintf(
			"/data/foundation/catalog/batches?property=relatedObjects.id==%s&limit=%d&orderBy=desc:created",
			url.QueryEscape(datasetID), limit))
	}
	return c.get(ctx, fmt.Sprintf("/data/foundation/catalog/batches?limit=%d&orderBy=desc:created", limit))
}

func (c *Client) Batch(ctx context.Context, batchID string) (any, error) {
	return c.get(ctx, "/data/foundation/catalog/batches/"+url.PathEscape(batchID))
}

// Schema registry

func (c *Client) Schemas(ctx context.Context, limit int) (any, error) {
	return c.getWithAccept(ctx,
		fmt.Sprintf("/data/foundation/schemaregistry/tenant/schemas?limit=%d", orDefault(limit, 20)),
		acceptXedID)
}

func (c *Client) Schema(ctx context.Context, schemaID string) (any, error) {
	return c.getWithAccept(ctx,
		"/data/foundation/schemaregistry/tenant/schemas/"+url.PathEscape(schemaID),
		acceptXedFull)
}

func (c *Client) SearchSchemas(ctx context.Context, query string) (any, error) {
	return c.getWithAccept(ctx,
		"/data/foundation/schemaregistry/tenant/schemas?property=title~"+url.QueryEscape(query),
		acceptXedID)
}

func (c *Client) FieldGroups(ctx context.Context, limit int) (any, error) {
	return c.getWithAccept(ctx,
		fmt.Sprintf("/data/foundation/schemaregistry/tenant/fieldgroups?limit=%d", orDefault(limit, 20)),
		acceptXedID)
}

// Identity

func (c *Client) IdentityNamespaces(ctx context.Context) (any, error) {
	return c.get(ctx, "/data/core/idnamespace/identities")
}

func (c *Client) IdentityGraph(ctx context.Context, namespace, identity string) (any, error) {
	return c.get(ctx, fmt.Sprintf(
		"/data/core/identity/cluster/members?xid.id=%s&xid.namespace.code=%s&graph-type=coop",
		url.QueryEscape(identity), url.QueryEscape(namespace)))
}

// Flow service

func (c *Client) Flows(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf("/data/foundation/flowservice/flows?limit=%d", orDefault(limit, 20)))
}

func (c *Client) Flow(ctx context.Context, flowID string) (any, error) {
	return c.get(ctx, "/data/foundation/flowservice/flows/"+url.PathEscape(flowID))
}

func (c *Client) FlowRuns(ctx context.Context, flowID string, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf(
		"/data/foundation/flowservice/runs?flowId=%s&limit=%d", url.QueryEscape(flowID), orDefault(limit, 5)))
}

func (c *Client) SourceConnections(ctx context.Context) (any, error) {
	return c.get(ctx, "/data/foundation/flowservice/connections?property=connectionSpec.id=="+sourceConnectionSpecID)
}

func (c *Client) DestinationConnections(ctx context.Context) (any, error) {
	return c.get(ctx, "/data/foundation/flowservice/connections?property=connectionSpec.id!="+sourceConnectionSpecID)
}

// Query service

func (c *Client) Queries(ctx context.Context, limit int) (any, error) {
	return c.get(ctx, fmt.Sprintf("/data/foundation/query/queries?limit=%d&orderBy=-created", orDefault(limit, 10)))
}

// ExecuteQuery submits a SQL query scoped to the client's org and sandbox.
func (c *Client) ExecuteQuery(ctx context.Context, sql string) (any, error) {
	return c.post(ctx, "/data/foundation/query/queries", map[string]any{
		"dbName": fmt.Sprintf("%s:%s", c.cfg.OrgID, c.cfg.Sandbox),
		"sql":    sql,
		"name":   fmt.Sprintf("query_%d", time.Now().UnixMilli()),
	})
}

// Sandboxes

func (c *Client) Sandboxes(ctx context.Context) (any, error) {
	return c.get(ctx, "/data/foundation/sandbox-management/sandboxes")
}

func orDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
