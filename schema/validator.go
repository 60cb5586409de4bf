package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed candidate_item.schema.json
var candidateItemSchemaJSON string

// CandidateRecord is one article as described by an upstream model response.
type CandidateRecord struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	SourceDomain     string `json:"source_domain"`
	PublishedAt      string `json:"published_at"`
	CompanyMentioned string `json:"company_mentioned"`

	// Raw holds the element exactly as it appeared in the payload, including
	// fields the schema does not name.
	Raw json.RawMessage `json:"-"`
}

// ElementError describes one rejected element of a candidate list.
type ElementError struct {
	Index int
	Err   error
}

func (e ElementError) Error() string {
	return fmt.Sprintf("element %d: %v", e.Index, e.Err)
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateCandidatePayload checks a single JSON object against the candidate
// schema and decodes it.
func ValidateCandidatePayload(payload json.RawMessage) (*CandidateRecord, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}
	return validateValue(value)
}

// ValidateCandidateList accepts either a JSON array of candidates or a single
// candidate object. Invalid elements are reported, valid ones returned.
func ValidateCandidateList(payload json.RawMessage) ([]CandidateRecord, []ElementError, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	var elements []any
	switch typed := value.(type) {
	case []any:
		elements = typed
	case map[string]any:
		if nested, ok := typed["articles"].([]any); ok {
			elements = nested
		} else {
			elements = []any{typed}
		}
	default:
		return nil, nil, fmt.Errorf("payload must be a JSON array or object")
	}

	raws := rawElements(payload, len(elements))
	records := make([]CandidateRecord, 0, len(elements))
	var rejected []ElementError
	for i, element := range elements {
		record, err := validateValue(element)
		if err != nil {
			rejected = append(rejected, ElementError{Index: i, Err: err})
			continue
		}
		if raws != nil {
			record.Raw = raws[i]
		}
		records = append(records, *record)
	}
	return records, rejected, nil
}

// rawElements splits payload into the original bytes of each element, in the
// same shapes ValidateCandidateList accepts. It returns nil if the split does
// not line up with the decoded elements.
func rawElements(payload json.RawMessage, count int) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(payload, &list); err == nil {
		if len(list) == count {
			return list
		}
		return nil
	}

	var wrapper struct {
		Articles []json.RawMessage `json:"articles"`
	}
	if err := json.Unmarshal(payload, &wrapper); err == nil && wrapper.Articles != nil {
		if len(wrapper.Articles) == count {
			return wrapper.Articles
		}
		return nil
	}
	if count == 1 {
		return []json.RawMessage{append(json.RawMessage(nil), payload...)}
	}
	return nil
}

func validateValue(value any) (*CandidateRecord, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var record CandidateRecord
	if err := json.Unmarshal(normalized, &record); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	record.Raw = normalized

	if strings.TrimSpace(record.Title) == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(record.URL) == "" {
		return nil, fmt.Errorf("url must not be empty")
	}
	return &record, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("candidate_item.schema.json", strings.NewReader(candidateItemSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("candidate_item.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
