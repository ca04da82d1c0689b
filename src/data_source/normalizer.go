package datasource

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// maxItemKeyLen caps normalized item keys so a feed cannot blow up dedup keys
// with free-text product descriptions.
const maxItemKeyLen = 120

// -----------------------------------------------------------------------------

// Normalize converts one provider's raw records into observations using the
// provider's schema hints. Hints are ordered synonym lists; the first key
// present in a record wins. Records that resolve no item key, no numeric
// value, or an unparseable date are rejected with a reason and never abort
// the run. Pure transformation, no side effects.
func Normalize(spec *models.MProviderSpec, category, defaultDate string, records []map[string]interface{}) ([]models.MObservation, []models.MRejection) {
	observations := make([]models.MObservation, 0, len(records))
	var rejections []models.MRejection

	reject := func(reason, detail string) {
		rejections = append(rejections, models.MRejection{
			Source:   spec.Name,
			Category: category,
			Reason:   reason,
			Detail:   detail,
		})
	}

	for _, record := range records {
		rawItem, ok := resolveKey(record, spec.Schema.ItemKeys)
		if !ok {
			reject(models.RejectMissingField, "no item key resolved")
			continue
		}
		item := normalizeItemKey(fmt.Sprint(rawItem))
		if item == "" {
			reject(models.RejectMissingField, "empty item key")
			continue
		}

		rawValue, ok := resolveKey(record, spec.Schema.ValueKeys)
		if !ok {
			reject(models.RejectMissingField, "no value key resolved for "+item)
			continue
		}
		value, err := parseNumeric(rawValue)
		if err != nil {
			reject(models.RejectNonNumericValue, fmt.Sprintf("%s: %v", item, err))
			continue
		}

		// A record without a date column is stamped with the run date; a
		// date that is present but unreadable is a malformed record.
		observedAt := defaultDate
		if rawDate, found := resolveKey(record, spec.Schema.DateKeys); found {
			observedAt, err = parseObservedDate(rawDate)
			if err != nil {
				reject(models.RejectUnparseableDate, fmt.Sprintf("%s: %v", item, err))
				continue
			}
		}

		unit := ""
		if rawUnit, found := resolveKey(record, spec.Schema.UnitKeys); found {
			unit = strings.TrimSpace(fmt.Sprint(rawUnit))
		}

		observations = append(observations, models.MObservation{
			Source:     spec.Name,
			Category:   category,
			ItemKey:    item,
			Value:      value,
			Unit:       unit,
			ObservedAt: observedAt,
			Tier:       spec.Tier,
		})
	}

	return observations, rejections
}

// -----------------------------------------------------------------------------

// resolveKey walks the synonym list in priority order and returns the first
// non-nil value present in the record.
func resolveKey(record map[string]interface{}, keys []string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := record[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// -----------------------------------------------------------------------------

func normalizeItemKey(raw string) string {
	item := strings.ToLower(strings.TrimSpace(raw))
	if len(item) > maxItemKeyLen {
		item = item[:maxItemKeyLen]
	}
	return item
}

// -----------------------------------------------------------------------------

// parseNumeric accepts JSON numbers, Go numeric types and price-formatted
// strings ("$12.99", "1,299").
func parseNumeric(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return checkFinite(v)
	case float32:
		return checkFinite(float64(v))
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", v.String())
		}
		return checkFinite(f)
	case string:
		cleaned := strings.TrimSpace(v)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", v)
		}
		return checkFinite(f)
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
}

func checkFinite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	return v, nil
}

// -----------------------------------------------------------------------------

// parseObservedDate accepts YYYY-MM-DD, RFC3339 timestamps and YYYY-MM
// reference months (StatCan tables date rows that way), returning the
// calendar date portion. A bare month maps to its first day.
func parseObservedDate(raw interface{}) (string, error) {
	s := strings.TrimSpace(fmt.Sprint(raw))
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format("2006-01-02"), nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("unparseable date: %q", s)
}
