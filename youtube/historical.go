package youtube

import (
	"bytes"
	"encoding/json"
)

// OptionalSeries is a daily series the analytics endpoint may omit.
// An unavailable series encodes as JSON null; an available but empty one as [].
type OptionalSeries struct {
	Values    []float64
	Available bool
}

// SeriesOf returns an available series.
func SeriesOf(values []float64) OptionalSeries {
	if values == nil {
		values = []float64{}
	}
	return OptionalSeries{Values: values, Available: true}
}

// MarshalJSON implements json.Marshaler.
func (s OptionalSeries) MarshalJSON() ([]byte, error) {
	if !s.Available {
		return []byte("null"), nil
	}
	if s.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Values)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *OptionalSeries) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = OptionalSeries{}
		return nil
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = SeriesOf(values)
	return nil
}

// OptionalValue is a total derived from an OptionalSeries.
type OptionalValue struct {
	Value     float64
	Available bool
}

// ValueOf returns an available value.
func ValueOf(v float64) OptionalValue {
	return OptionalValue{Value: v, Available: true}
}

// MarshalJSON implements json.Marshaler.
func (v OptionalValue) MarshalJSON() ([]byte, error) {
	if !v.Available {
		return []byte("null"), nil
	}
	return json.Marshal(v.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *OptionalValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = OptionalValue{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = ValueOf(f)
	return nil
}

// HistoricalRecord is the normalized analytics time series of one video.
// Days and DailyViews always have the same length. Each optional series is
// either fully present or marked unavailable.
type HistoricalRecord struct {
	// StartDate is the UTC calendar date (YYYY-MM-DD) of the first data point.
	StartDate string `json:"startDate"`
	// Days are zero-based day offsets from StartDate.
	Days       []int     `json:"days"`
	DailyViews []float64 `json:"dailyView"`
	TotalViews float64   `json:"totalView"`

	DailyShares OptionalSeries `json:"dailyShare"`
	TotalShares OptionalValue  `json:"totalShare"`

	DailyWatch OptionalSeries `json:"dailyWatch"`
	// AvgWatch is total watch time divided by TotalViews; unavailable when
	// either is missing or TotalViews is zero.
	AvgWatch OptionalValue `json:"avgWatch"`

	DailySubscribers OptionalSeries `json:"dailySubscriber"`
	TotalSubscribers OptionalValue  `json:"totalSubscriber"`
}
