// Package spec embeds the OpenAPI document served at /api-docs.
package spec

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
