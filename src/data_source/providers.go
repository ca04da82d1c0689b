package datasource

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// Provider types accepted in the category registry.
const (
	ProviderJSONFeed = "jsonfeed"
	ProviderCSVFeed  = "csvfeed"
	ProviderFileFeed = "filefeed"
)

// Envelope keys probed when a JSON payload is an object instead of an array.
var recordEnvelopeKeys = []string{"items", "results", "data", "records"}

// -----------------------------------------------------------------------------

// BuildProvider constructs the concrete feed for one registry entry.
func BuildProvider(spec models.MProviderSpec, netMgr interfaces.INetworkManager, log *logger.Logger) (interfaces.IFeedProvider, error) {
	switch spec.Type {
	case ProviderJSONFeed:
		return &JSONFeed{Spec: spec, Network: netMgr, Logger: log}, nil
	case ProviderCSVFeed:
		return &CSVFeed{Spec: spec, Network: netMgr, Logger: log}, nil
	case ProviderFileFeed:
		return &FileFeed{Spec: spec, Logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown provider type %q for source %s", spec.Type, spec.Name)
	}
}

// -----------------------------------------------------------------------------
// JSONFeed fetches an HTTP JSON payload through the network manager.
// -----------------------------------------------------------------------------

type JSONFeed struct {
	Spec    models.MProviderSpec
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

func (f *JSONFeed) Name() string { return f.Spec.Name }
func (f *JSONFeed) Tier() string { return f.Spec.Tier }

func (f *JSONFeed) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := map[string]string{}
	if f.Spec.APIKey != "" {
		params["api_key"] = f.Spec.APIKey
	}

	body, err := f.Network.Get(f.Spec.URL, params)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", f.Spec.Name, err)
	}
	return decodeRecords(body)
}

// -----------------------------------------------------------------------------

// decodeRecords accepts a top-level array of objects or an object wrapping
// the array under a conventional envelope key.
func decodeRecords(body []byte) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	for _, key := range recordEnvelopeKeys {
		raw, ok := envelope[key].([]interface{})
		if !ok {
			continue
		}
		records = make([]map[string]interface{}, 0, len(raw))
		for _, entry := range raw {
			if record, ok := entry.(map[string]interface{}); ok {
				records = append(records, record)
			}
		}
		return records, nil
	}
	return nil, fmt.Errorf("no record array found in JSON payload")
}

// -----------------------------------------------------------------------------
// CSVFeed fetches an HTTP CSV table; the header row names the record keys.
//
// TODO: unwrap StatCan full-table downloads, which ship as -eng.zip archives
// holding a single CSV. Until then those chains fall through to the next
// provider.
// -----------------------------------------------------------------------------

type CSVFeed struct {
	Spec    models.MProviderSpec
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

func (f *CSVFeed) Name() string { return f.Spec.Name }
func (f *CSVFeed) Tier() string { return f.Spec.Tier }

func (f *CSVFeed) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := f.Network.Get(f.Spec.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", f.Spec.Name, err)
	}
	return decodeCSV(body)
}

// -----------------------------------------------------------------------------

func decodeCSV(body []byte) ([]map[string]interface{}, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV payload: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV payload has no data rows")
	}

	header := rows[0]
	// Some StatCan exports lead with a UTF-8 BOM on the first column name.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	records := make([]map[string]interface{}, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// -----------------------------------------------------------------------------
// FileFeed reads a local JSON fixture. Used for panel drops delivered out of
// band and by the fixture harness.
// -----------------------------------------------------------------------------

type FileFeed struct {
	Spec   models.MProviderSpec
	Logger *logger.Logger
}

func (f *FileFeed) Name() string { return f.Spec.Name }
func (f *FileFeed) Tier() string { return f.Spec.Tier }

func (f *FileFeed) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(f.Spec.Path)
	if err != nil {
		return nil, fmt.Errorf("read failed for %s: %w", f.Spec.Name, err)
	}
	return decodeRecords(body)
}
