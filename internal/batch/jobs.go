// Package batch turns invocation payloads into node jobs and runs them through the processor.
package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// ErrNoJobs reports a direct payload that names no nodes.
var ErrNoJobs = eris.New("direct invocation must specify nodeId or nodeIds")

// Record is one queue message handed to RunSQS.
type Record struct {
	MessageID string `json:"messageId"`
	Body      string `json:"body"`
}

// ParseDirect decodes a direct invocation body. Accepted shapes, in order of precedence:
// {"nodes":[{"nodeId","userId"}]}, {"nodeIds":[...],"userId"}, {"nodeId","userId"},
// each optionally wrapped in {"body": <object or JSON string>}.
func ParseDirect(body []byte) ([]domain.Job, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoJobs
	}

	event, err := decodeObject(body)
	if err != nil {
		return nil, eris.Wrap(err, "invalid request body")
	}

	payload := map[string]any{}
	if inner, ok := event["body"]; ok {
		switch v := inner.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				if payload, err = decodeObject([]byte(v)); err != nil {
					return nil, eris.Wrap(err, "invalid request body")
				}
			}
		case map[string]any:
			payload = v
		}
	}
	if len(payload) == 0 {
		payload = event
	}
	if len(payload) == 0 {
		return nil, ErrNoJobs
	}

	if list, ok := payload["nodes"].([]any); ok {
		jobs := make([]domain.Job, 0, len(list))
		for i, item := range list {
			entry, _ := item.(map[string]any)
			job, err := jobFrom(entry)
			if err != nil {
				return nil, eris.Wrapf(err, "nodes[%d]", i)
			}
			jobs = append(jobs, job)
		}
		return jobs, nil
	}

	if ids, ok := payload["nodeIds"].([]any); ok {
		userID := stringOf(payload["userId"])
		jobs := make([]domain.Job, 0, len(ids))
		for _, id := range ids {
			if nodeID := stringOf(id); nodeID != "" {
				jobs = append(jobs, domain.Job{NodeID: nodeID, UserID: userID})
			}
		}
		if len(jobs) == 0 {
			return nil, ErrNoJobs
		}
		return jobs, nil
	}

	if _, ok := payload["nodeId"]; ok {
		job, err := jobFrom(payload)
		if err != nil {
			return nil, err
		}
		return []domain.Job{job}, nil
	}

	return nil, ErrNoJobs
}

// ParseSQSRecord extracts the node job carried by a queue message body.
func ParseSQSRecord(rec Record) (domain.Job, error) {
	body := rec.Body
	if strings.TrimSpace(body) == "" {
		body = "{}"
	}
	msg, err := decodeObject([]byte(body))
	if err != nil {
		return domain.Job{}, eris.Wrap(err, "invalid sqs message body")
	}
	nodeID := stringOf(msg["nodeId"])
	if nodeID == "" {
		return domain.Job{}, eris.New("nodeId not found in message body")
	}
	return domain.Job{NodeID: nodeID, UserID: stringOf(msg["userId"]), MessageID: rec.MessageID}, nil
}

func jobFrom(entry map[string]any) (domain.Job, error) {
	nodeID := stringOf(entry["nodeId"])
	if nodeID == "" {
		return domain.Job{}, eris.New("nodeId is required for each entry")
	}
	return domain.Job{NodeID: nodeID, UserID: stringOf(entry["userId"])}, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
