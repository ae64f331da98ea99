package mcp

import (
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Search answers the search and format_context tools.
	Search driving.SearchService

	// Ingest reports durable index statistics. Optional.
	Ingest driving.IngestService

	// Corpus lists the knowledge base files. Optional.
	Corpus driving.CorpusService

	// Sync reports recent sync runs. Optional.
	Sync driving.SyncOrchestrator
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
