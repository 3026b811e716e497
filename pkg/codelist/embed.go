package codelist

import "embed"

// FS embeds the IATI codelist tables at build time. The tables are loaded
// once on first use and never mutated afterward, so readers need no locking.
//
//go:embed codelists.yaml
var FS embed.FS
