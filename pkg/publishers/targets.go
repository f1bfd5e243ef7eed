package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"gopkg.in/yaml.v3"
)

// Publisher types.
const (
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeHTTP   = "http"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// Target is one outcome destination declared in PUBLISHERS_FILE.
// Outcomes restricts delivery to the listed statuses; empty means every outcome.
type Target struct {
	ID       string        `json:"id" yaml:"id"`
	Type     string        `json:"type" yaml:"type"`
	Enabled  *bool         `json:"enabled" yaml:"enabled"`
	Outcomes []string      `json:"outcomes" yaml:"outcomes"`
	SQS      *SQSTarget    `json:"sqs" yaml:"sqs"`
	SNS      *SNSTarget    `json:"sns" yaml:"sns"`
	PubSub   *PubSubTarget `json:"pubsub" yaml:"pubsub"`
	HTTP     *HTTPTarget   `json:"http" yaml:"http"`
}

// SQSTarget sends each outcome as an SQS message.
type SQSTarget struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// SNSTarget publishes each outcome to an SNS topic.
type SNSTarget struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// PubSubTarget publishes each outcome to a Cloud Pub/Sub topic.
type PubSubTarget struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPTarget posts each outcome as JSON to a webhook.
type HTTPTarget struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Targets is the validated content of a publishers file.
type Targets []Target

// LoadTargets reads and validates publisher targets from a YAML or JSON file.
func LoadTargets(path string) (Targets, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var doc struct {
		Publishers []Target `json:"publishers" yaml:"publishers"`
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &doc)
	default:
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(doc.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	out := make(Targets, 0, len(doc.Publishers))
	for i, t := range doc.Publishers {
		t = t.normalized()
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := out.ByID(t.ID); dup {
			return nil, fmt.Errorf("duplicate publisher id %q", t.ID)
		}
		out = append(out, t)
	}
	return out, nil
}

// ByID returns the target with the given id.
func (ts Targets) ByID(id string) (Target, bool) {
	id = strings.TrimSpace(id)
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

// Enabled returns the targets that are switched on.
func (ts Targets) Enabled() Targets {
	var out Targets
	for _, t := range ts {
		if t.IsEnabled() {
			out = append(out, t)
		}
	}
	return out
}

// IsEnabled defaults to true when the flag is omitted.
func (t Target) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Accepts reports whether an outcome with status should be delivered to t.
func (t Target) Accepts(status string) bool {
	return len(t.Outcomes) == 0 || slices.Contains(t.Outcomes, status)
}

func (t Target) normalized() Target {
	t.ID = strings.TrimSpace(t.ID)
	t.Type = strings.ToLower(strings.TrimSpace(t.Type))

	var outcomes []string
	for _, o := range t.Outcomes {
		if o = strings.ToLower(strings.TrimSpace(o)); o != "" && !slices.Contains(outcomes, o) {
			outcomes = append(outcomes, o)
		}
	}
	t.Outcomes = outcomes

	if t.SQS != nil {
		c := SQSTarget{
			QueueURL: strings.TrimSpace(t.SQS.QueueURL),
			Region:   strings.TrimSpace(t.SQS.Region),
			Endpoint: strings.TrimSpace(t.SQS.Endpoint),
		}
		t.SQS = &c
	}
	if t.SNS != nil {
		c := SNSTarget{
			TopicARN: strings.TrimSpace(t.SNS.TopicARN),
			Region:   strings.TrimSpace(t.SNS.Region),
			Endpoint: strings.TrimSpace(t.SNS.Endpoint),
		}
		t.SNS = &c
	}
	if t.PubSub != nil {
		c := PubSubTarget{
			ProjectID:       strings.TrimSpace(t.PubSub.ProjectID),
			Topic:           strings.TrimSpace(t.PubSub.Topic),
			CredentialsFile: strings.TrimSpace(t.PubSub.CredentialsFile),
		}
		t.PubSub = &c
	}
	if t.HTTP != nil {
		c := HTTPTarget{
			URL:            strings.TrimSpace(t.HTTP.URL),
			Method:         strings.ToUpper(strings.TrimSpace(t.HTTP.Method)),
			Headers:        trimHeaders(t.HTTP.Headers),
			TimeoutSeconds: t.HTTP.TimeoutSeconds,
		}
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		t.HTTP = &c
	}
	return t
}

func (t Target) validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	for _, o := range t.Outcomes {
		if !slices.Contains(domain.OutcomeStatuses, o) {
			return fmt.Errorf("publisher %q: unknown outcome %q (want one of %v)", t.ID, o, domain.OutcomeStatuses)
		}
	}

	var missing []string
	switch t.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", t.ID)
	case TypeSQS:
		if t.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", t.ID)
		}
		missing = blank(map[string]string{"sqs.uri": t.SQS.QueueURL, "sqs.region": t.SQS.Region})
	case TypeSNS:
		if t.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", t.ID)
		}
		missing = blank(map[string]string{"sns.topic_arn": t.SNS.TopicARN, "sns.region": t.SNS.Region})
	case TypePubSub:
		if t.PubSub == nil {
			return fmt.Errorf("pubsub config required for publisher %q", t.ID)
		}
		missing = blank(map[string]string{"pubsub.project_id": t.PubSub.ProjectID, "pubsub.topic": t.PubSub.Topic})
	case TypeHTTP:
		if t.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", t.ID)
		}
		missing = blank(map[string]string{"http.url": t.HTTP.URL})
	default:
		return fmt.Errorf("unsupported type %q for publisher %q", t.Type, t.ID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("publisher %q missing %s", t.ID, strings.Join(missing, ", "))
	}
	return nil
}

// blank returns the sorted names of empty fields.
func blank(fields map[string]string) []string {
	var out []string
	for name, v := range fields {
		if v == "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
