package mcpbridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/mktcloud/sfmc-asset-agent/pkg/mcpmanifest"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// Resource URIs served by resources/read. All bridge resources live under
// the sfmc:// scheme.
const (
	resourceScheme    = "sfmc"
	statusResourceURI = "sfmc://connection/status"
	typesResourceURI  = "sfmc://assets/types"
)

// ResourceDefinition is the MCP resource descriptor sent in resources/list
// responses.
type ResourceDefinition struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Resources returns the resource catalog for resources/list responses.
func (r *Registry) Resources() []ResourceDefinition {
	return []ResourceDefinition{
		{
			URI:         statusResourceURI,
			Name:        "Connection status",
			Description: "Current Marketing Cloud session state, including token validity and expiry.",
			MimeType:    "application/json",
		},
		{
			URI:         typesResourceURI,
			Name:        "Asset type reference",
			Description: "Common asset type names, filter operators and example searches.",
			MimeType:    "application/json",
		},
	}
}

// ReadResource returns the JSON text of one resource. Reading the status
// resource never fails, even with no active session.
func (r *Registry) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case statusResourceURI:
		sess := r.Session()
		if sess == nil {
			return renderJSON(sfmc.NotInitializedStatus()), nil
		}
		return renderJSON(sess.Status(ctx)), nil
	case typesResourceURI:
		return renderJSON(sfmc.TypesReference()), nil
	default:
		if !strings.HasPrefix(uri, resourceScheme+"://") {
			return "", fmt.Errorf("unsupported scheme in %q: bridge resources use %s://", uri, resourceScheme)
		}
		return "", fmt.Errorf("unknown resource: %q", uri)
	}
}

// Manifest assembles the machine-readable capability manifest from the live
// tool and resource catalogs. The same document is printed by the
// `sfmc-mcp manifest` subcommand and served by the HTTP gateway.
func (r *Registry) Manifest() mcpmanifest.Manifest {
	m := mcpmanifest.Manifest{
		SchemaVersion: protocolVersion,
		Name:          serverName,
		Version:       serverVersion,
		Description:   serverDescription,
		RequiredEnv:   []string{"SFMC_SUBDOMAIN", "SFMC_CLIENT_ID", "SFMC_CLIENT_SECRET"},
	}
	for _, d := range r.defs {
		m.Tools = append(m.Tools, mcpmanifest.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	for _, res := range r.Resources() {
		m.Resources = append(m.Resources, mcpmanifest.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MimeType:    res.MimeType,
		})
	}
	return m
}
