package scan

import (
	"encoding/json"
	"time"
)

// Protocol names the probe kind that produced a finding.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolSSL  Protocol = "ssl"
	ProtocolDNS  Protocol = "dns"
)

// Finding is the outcome of evaluating one request spec against one target.
// Findings are never modified after the scanner returns them.
type Finding struct {
	TemplateID     string   `json:"template_id"`
	Name           string   `json:"name"`
	Author         string   `json:"author"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Protocol       Protocol `json:"protocol"`
	URL            string   `json:"url"`

	StatusCode int `json:"status_code,omitempty"`

	QueryType    string   `json:"query_type,omitempty"`
	ResponseData []string `json:"response_data,omitempty"`

	SSLOutcome string `json:"ssl_outcome,omitempty"`
	TLSVersion string `json:"tls_version,omitempty"`

	Matched   bool      `json:"matched"`
	Timestamp time.Time `json:"timestamp"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// MarshalJSON always emits response_data for DNS findings, as [] when empty.
func (f Finding) MarshalJSON() ([]byte, error) {
	type plain Finding
	out := struct {
		plain
		ResponseData *[]string `json:"response_data,omitempty"`
	}{plain: plain(f)}

	if f.Protocol == ProtocolDNS {
		data := f.ResponseData
		if data == nil {
			data = []string{}
		}
		out.ResponseData = &data
	} else if len(f.ResponseData) > 0 {
		out.ResponseData = &f.ResponseData
	}
	return json.Marshal(out)
}
