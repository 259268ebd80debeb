package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// Client-side views of API payloads. Field names follow the API.

type registryInfo struct {
	Authority   string `json:"authority"`
	Initialized bool   `json:"initialized"`
	TotalSupply uint64 `json:"total_supply"`
	NextID      uint64 `json:"next_id"`
	LastCommit  uint64 `json:"last_commit"`
}

type supplyInfo struct {
	TotalSupply uint64 `json:"total_supply"`
}

type mintRequest struct {
	Owner       string                     `json:"owner"`
	MetadataURI string                     `json:"metadata_uri"`
	ClaimData   string                     `json:"claim_data,omitempty"`
	Metadata    *domain.StructuredMetadata `json:"metadata,omitempty"`
	Wait        bool                       `json:"wait,omitempty"`
}

// Submission statuses reported by the server.
const (
	statusPending   = "pending"
	statusConfirmed = "confirmed"
	statusFailed    = "failed"
)

type submission struct {
	SubmissionID string    `json:"submission_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"`
	TokenID      uint64    `json:"token_id,omitempty"`
	CommitIndex  uint64    `json:"commit_index,omitempty"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
}

func (s submission) done() bool {
	return s.Status == statusConfirmed || s.Status == statusFailed
}

func (s submission) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("submission_id", s.SubmissionID)
	t.AddRow("status", s.Status)
	if s.TokenID != 0 {
		t.AddRow("token_id", fmt.Sprint(s.TokenID))
	}
	if s.CommitIndex != 0 {
		t.AddRow("commit_index", fmt.Sprint(s.CommitIndex))
	}
	if s.Error != "" {
		t.AddRow("error", s.Error)
	}
	if wide {
		t.AddRow("kind", s.Kind)
		t.AddRow("submitted_at", s.SubmittedAt.UTC().Format(time.RFC3339))
	}
	return t
}

type claim struct {
	ID          uint64                     `json:"id"`
	Owner       string                     `json:"owner"`
	ClaimData   string                     `json:"claim_data"`
	MetadataURI string                     `json:"metadata_uri"`
	Sequence    uint64                     `json:"sequence"`
	Issuer      string                     `json:"issuer"`
	MintedAt    time.Time                  `json:"minted_at"`
	Structured  bool                       `json:"structured"`
	Metadata    *domain.StructuredMetadata `json:"metadata,omitempty"`
}

// Table renders one claim as a field list, expanding structured metadata.
func (c claim) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("id", fmt.Sprint(c.ID))
	t.AddRow("owner", c.Owner)
	t.AddRow("metadata_uri", orDash(c.MetadataURI))
	if c.Metadata != nil {
		for _, kv := range metadataRows(c.Metadata) {
			t.AddRow(kv[0], kv[1])
		}
	} else {
		t.AddRow("claim_data", orDash(c.ClaimData))
	}
	if wide {
		t.AddRow("sequence", fmt.Sprint(c.Sequence))
		t.AddRow("issuer", c.Issuer)
		t.AddRow("minted_at", c.MintedAt.UTC().Format(time.RFC3339))
	}
	return t
}

// metadataRows lists the set fields of m. Title and description fall back
// to sub-type and sub-answer.
func metadataRows(m *domain.StructuredMetadata) [][2]string {
	var rows [][2]string
	add := func(k, v string) {
		if v != "" {
			rows = append(rows, [2]string{k, v})
		}
	}
	add("type", m.Type)
	add("title", m.Label())
	add("description", m.Detail())
	add("claim_issuer", m.Issuer)
	add("timestamp", m.Timestamp)
	if len(m.Attributes) > 0 {
		add("attributes", attributesString(m.Attributes))
	}
	return rows
}

func attributesString(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v, err := json.Marshal(attrs[k])
		if err != nil {
			v = []byte(fmt.Sprint(attrs[k]))
		}
		parts[i] = k + "=" + strings.Trim(string(v), `"`)
	}
	return strings.Join(parts, ", ")
}

type claimList struct {
	Claims    []claim `json:"claims"`
	NextAfter uint64  `json:"next_after,omitempty"`
}

func (l claimList) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"ID", "OWNER", "TYPE", "TITLE", "METADATA_URI"}}
	if wide {
		t.Headers = append(t.Headers, "ISSUER", "MINTED_AT")
	}
	for _, c := range l.Claims {
		kind, title := "-", "-"
		if c.Metadata != nil {
			kind, title = orDash(c.Metadata.Type), orDash(c.Metadata.Label())
		}
		row := []string{fmt.Sprint(c.ID), c.Owner, kind, title, orDash(c.MetadataURI)}
		if wide {
			row = append(row, c.Issuer, c.MintedAt.UTC().Format(time.RFC3339))
		}
		t.AddRow(row...)
	}
	return t
}

type tokenURI struct {
	ID  uint64 `json:"id"`
	URI string `json:"uri"`
}

type holderClaims struct {
	Owner    string   `json:"owner"`
	TokenIDs []uint64 `json:"token_ids"`
	Count    int      `json:"count"`
}

type holderValid struct {
	Owner string `json:"owner"`
	Valid bool   `json:"valid"`
}

type apiKeyInfo struct {
	KeyID     string   `json:"key_id"`
	Address   string   `json:"address"`
	Role      string   `json:"role"`
	Allowlist []string `json:"allowlist,omitempty" table:"wide"`
}

type statusSummary struct {
	Version   string        `json:"version"`
	Commit    string        `json:"commit"`
	Writable  bool          `json:"writable"`
	Clustered bool          `json:"clustered"`
	Registry  *registryInfo `json:"registry"`
	Time      time.Time     `json:"time"`
}

func (s statusSummary) Table(bool) *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("version", s.Version)
	t.AddRow("commit", s.Commit)
	t.AddRow("writable", fmt.Sprint(s.Writable))
	t.AddRow("clustered", fmt.Sprint(s.Clustered))
	if s.Registry != nil {
		t.AddRow("authority", orDash(s.Registry.Authority))
		t.AddRow("total_supply", fmt.Sprint(s.Registry.TotalSupply))
		t.AddRow("last_commit", fmt.Sprint(s.Registry.LastCommit))
	}
	return t
}

type clusterServer struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Suffrage string `json:"suffrage"`
	Leader   bool   `json:"leader"`
}

type clusterStatus struct {
	NodeID       string          `json:"node_id"`
	State        string          `json:"state"`
	LeaderID     string          `json:"leader_id"`
	LeaderAddr   string          `json:"leader_addr"`
	LastIndex    uint64          `json:"last_index"`
	AppliedIndex uint64          `json:"applied_index"`
	Servers      []clusterServer `json:"servers"`
}

func (s clusterStatus) Table(bool) *output.Table {
	t := &output.Table{Headers: []string{"ID", "ADDRESS", "SUFFRAGE", "LEADER", "SELF"}}
	for _, srv := range s.Servers {
		t.AddRow(srv.ID, srv.Address, srv.Suffrage, fmt.Sprint(srv.Leader), fmt.Sprint(srv.ID == s.NodeID))
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
