package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	endpointSelect     = "/solr/%s/select"
	endpointIndexStats = "/solr/%s/admin/stats.jsp"
	endpointAdminFile  = "/solr/%s/admin/file/"
	endpointUpdate     = "/solr/%s/update"
	endpointReplicate  = "/solr/%s/replication"
	endpointCoreAdmin  = "/solr/admin/cores"
)

// CorePath expands a per-core endpoint format with an escaped core name.
func CorePath(format, core string) string {
	return fmt.Sprintf(format, url.PathEscape(core))
}

// SelectPath returns the request handler path of core.
func SelectPath(core string) string { return CorePath(endpointSelect, core) }

// AdminFilePath returns the config file endpoint of core.
func AdminFilePath(core string) string { return CorePath(endpointAdminFile, core) }

// UpdatePath returns the update handler path of core.
func UpdatePath(core string) string { return CorePath(endpointUpdate, core) }

// ReplicationPath returns the replication handler path of core.
func ReplicationPath(core string) string { return CorePath(endpointReplicate, core) }

// CoreAdminPath returns the server-wide core admin path.
func CoreAdminPath() string { return endpointCoreAdmin }

// GetImportStatus fetches the data import handler status of core.
func (c *DefaultClient) GetImportStatus(ctx context.Context, core string) (*ImportStatus, error) {
	resp, err := c.Execute(ctx, Command{
		Path: SelectPath(core),
		Params: url.Values{
			"qt":      {"/dataimport"},
			"command": {"status"},
			"clean":   {"false"},
			"commit":  {"true"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetImportStatus: %w", err)
	}

	return &ImportStatus{
		Status:                  resp.Value("str", fieldStatus),
		ImportResponse:          resp.Value("str", fieldImportResponse),
		TimeElapsed:             resp.Value("str", fieldTimeElapsed),
		TimeTaken:               resp.Value("str", fieldTimeTaken),
		TotalRowsFetched:        resp.Value("str", fieldTotalRowsFetched),
		TotalDocumentsProcessed: resp.Value("str", fieldTotalDocumentsProcessed),
		TotalDocumentsSkipped:   resp.Value("str", fieldTotalDocumentsSkipped),
		Committed:               resp.Value("str", fieldCommitted),
		Optimized:               resp.Value("str", fieldOptimized),
		Rolledback:              resp.Value("str", fieldRolledback),
	}, nil
}

// GetIndexStats fetches the index version and live document count from the
// core statistics page.
func (c *DefaultClient) GetIndexStats(ctx context.Context, core string) (*IndexStats, error) {
	resp, err := c.Execute(ctx, Command{Path: CorePath(endpointIndexStats, core)})
	if err != nil {
		return nil, fmt.Errorf("GetIndexStats: %w", err)
	}

	stats := &IndexStats{IndexVersion: resp.Value("stat", statIndexVersion)}
	if raw := resp.Value("stat", statNumDocs); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GetIndexStats decode numDocs %q: %w", raw, err)
		}
		stats.NumDocs = n
	}
	return stats, nil
}

// GetDocumentCount runs a match-all query with zero rows and returns numFound.
func (c *DefaultClient) GetDocumentCount(ctx context.Context, core string) (int64, error) {
	resp, err := c.Execute(ctx, Command{
		Path: SelectPath(core),
		Params: url.Values{
			"q":     {"*:*"},
			"start": {"0"},
			"rows":  {"0"},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("GetDocumentCount: %w", err)
	}

	raw := strings.TrimSpace(resp.Attr("result", "response", "numFound"))
	if raw == "" {
		return 0, fmt.Errorf("GetDocumentCount: numFound missing from response")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("GetDocumentCount decode: %w", err)
	}
	return n, nil
}

// Ping checks that the server answers core admin requests.
func (c *DefaultClient) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, Command{
		Path:   CoreAdminPath(),
		Params: url.Values{"action": {"STATUS"}},
	})
	if err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}
