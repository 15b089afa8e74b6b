package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Coordinates struct {
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// HasPosition reports whether both latitude and longitude are set, in which case
// no geocoding is needed.
func (c Coordinates) HasPosition() bool {
	return c.Latitude != 0 && c.Longitude != 0
}

// IsEmpty reports whether the value carries neither a usable name nor a position.
func (c Coordinates) IsEmpty() bool {
	return strings.TrimSpace(c.Name) == "" && !c.HasPosition()
}

// WeatherData is the weather endpoint payload, passed through untouched.
type WeatherData json.RawMessage

// IsEmpty matches the render gate rule: a payload is empty when it is falsy or
// has no own keys. Numbers and booleans never have keys, so they are always
// empty; strings, arrays and objects are empty only when they have no elements.
func (w WeatherData) IsEmpty() bool {
	trimmed := bytes.TrimSpace(w)
	if len(trimmed) == 0 {
		return true
	}
	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case nil, bool, float64:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}

func (w WeatherData) MarshalJSON() ([]byte, error) {
	if len(w) == 0 {
		return []byte("{}"), nil
	}
	return w, nil
}

func (w *WeatherData) UnmarshalJSON(data []byte) error {
	*w = append((*w)[0:0], data...)
	return nil
}

// External Objects

type GeocodingInfo struct {
	Status  string            `json:"status"`
	Results []GeocodingResult `json:"results"`
}

type GeocodingResult struct {
	FormattedAddress string            `json:"formatted_address"`
	Geometry         GeocodingGeometry `json:"geometry"`
}

type GeocodingGeometry struct {
	Location GeocodingLocation `json:"location"`
}

type GeocodingLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Published state

type Gate string

const (
	GateLoading  Gate = "loading"
	GateChildren Gate = "children"
)

type State struct {
	Version           uint64       `json:"version"`
	IsLoading         bool         `json:"isLoading"`
	WeatherData       WeatherData  `json:"weatherData"`
	CurrentCityCoords *Coordinates `json:"currentCityCoords,omitempty"`
}

// Gate tells a consumer whether to render its children or a loading placeholder.
// Only an empty payload gates; the loading flag does not.
func (s State) Gate() Gate {
	if s.WeatherData.IsEmpty() {
		return GateLoading
	}
	return GateChildren
}
