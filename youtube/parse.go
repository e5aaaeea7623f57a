package youtube

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/antchfx/xmlquery"
)

const (
	millisPerDay = 86400000
	dateLayout   = "2006-01-02"

	// graphDataXPath locates the node whose text is the embedded JSON blob.
	graphDataXPath = "//graph_data"
)

// Upstream series keys inside the embedded JSON blob.
const (
	keyDay         = "day"
	keyViews       = "views"
	keyShares      = "shares"
	keyWatchTime   = "watch-time"
	keySubscribers = "subscribers"
)

type dataPoints struct {
	Data []*float64 `json:"data"`
}

type seriesBlock struct {
	Daily      json.RawMessage `json:"daily"`
	Cumulative json.RawMessage `json:"cumulative"`
}

// series is a decoded upstream series. Cumulative is nil when the block is
// absent or malformed.
type series struct {
	Daily      []float64
	Cumulative []float64
}

var (
	errNoDaily   = errors.New("no daily series")
	errNullPoint = errors.New("null data point")
)

// ParseHistorical normalizes a raw analytics response into a HistoricalRecord.
// It fails with a *ParseError (matching ErrParse) when the envelope is not
// well-formed XML, has no graph_data node, or carries no usable daily view
// series. Missing or malformed share, watch-time and subscriber series are
// marked unavailable instead.
func ParseHistorical(raw []byte) (*HistoricalRecord, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Reason: "malformed envelope", Err: err}
	}
	node := xmlquery.FindOne(doc, graphDataXPath)
	if node == nil {
		return nil, &ParseError{Reason: "no graph_data node"}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(node.InnerText()), &payload); err != nil {
		return nil, &ParseError{Reason: "graph_data is not a JSON object", Err: err}
	}

	views, err := decodeSeries(payload, keyViews)
	if err != nil {
		return nil, &ParseError{Reason: "decode view series", Err: err}
	}
	dailyViews := views.Daily

	var days []float64
	if rawDay, ok := payload[keyDay]; ok {
		if days, err = decodePoints(rawDay); err != nil {
			return nil, &ParseError{Reason: "decode day index", Err: err}
		}
	}
	if len(days) != len(dailyViews) {
		return nil, &ParseError{Reason: "day index and daily views differ in length"}
	}

	rec := &HistoricalRecord{
		StartDate:  startDate(days),
		Days:       dayOffsets(days),
		DailyViews: dailyViews,
		TotalViews: views.total(),
	}

	n := len(dailyViews)
	rec.DailyShares, rec.TotalShares = optionalSeries(payload, keyShares, n)
	rec.DailySubscribers, rec.TotalSubscribers = optionalSeries(payload, keySubscribers, n)

	var totalWatch OptionalValue
	rec.DailyWatch, totalWatch = optionalSeries(payload, keyWatchTime, n)
	if totalWatch.Available && rec.TotalViews > 0 {
		rec.AvgWatch = ValueOf(totalWatch.Value / rec.TotalViews)
	}
	return rec, nil
}

// decodePoints decodes a {"data": [...]} block. A null point is an error.
func decodePoints(raw json.RawMessage) ([]float64, error) {
	var p dataPoints
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.Data == nil {
		return nil, nil
	}
	out := make([]float64, len(p.Data))
	for i, v := range p.Data {
		if v == nil {
			return nil, fmt.Errorf("%w at index %d", errNullPoint, i)
		}
		out[i] = *v
	}
	return out, nil
}

// decodeSeries decodes the series under key. The daily block must be present
// and clean; a malformed cumulative block is dropped.
func decodeSeries(payload map[string]json.RawMessage, key string) (*series, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, errNoDaily
	}
	var b seriesBlock
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	if len(b.Daily) == 0 || string(b.Daily) == "null" {
		return nil, errNoDaily
	}
	daily, err := decodePoints(b.Daily)
	if err != nil {
		return nil, fmt.Errorf("daily: %w", err)
	}
	if daily == nil {
		return nil, errNoDaily
	}
	s := &series{Daily: daily}
	if len(b.Cumulative) > 0 {
		if cum, err := decodePoints(b.Cumulative); err == nil {
			s.Cumulative = cum
		}
	}
	return s, nil
}

// optionalSeries extracts one optional series and its total. Any decode
// failure, a missing daily series, or a length mismatch with the view
// series marks both unavailable.
func optionalSeries(payload map[string]json.RawMessage, key string, n int) (OptionalSeries, OptionalValue) {
	s, err := decodeSeries(payload, key)
	if err != nil || len(s.Daily) != n {
		return OptionalSeries{}, OptionalValue{}
	}
	return SeriesOf(s.Daily), ValueOf(s.total())
}

// total is the cumulative series' last element when present, else the daily sum.
func (s *series) total() float64 {
	if len(s.Cumulative) > 0 {
		return s.Cumulative[len(s.Cumulative)-1]
	}
	var sum float64
	for _, v := range s.Daily {
		sum += v
	}
	return sum
}

func startDate(days []float64) string {
	if len(days) == 0 {
		return ""
	}
	return time.UnixMilli(int64(days[0])).UTC().Format(dateLayout)
}

// dayOffsets rounds each (entry - first) / day to the nearest integer.
func dayOffsets(days []float64) []int {
	offsets := make([]int, len(days))
	if len(days) == 0 {
		return offsets
	}
	first := days[0]
	for i, d := range days {
		offsets[i] = int(math.Round((d - first) / millisPerDay))
	}
	return offsets
}
