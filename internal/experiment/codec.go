package experiment

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// controlKey is the exchange-format key of the control variation
const controlKey = "0"

// record is the exchange-format form of one variation
type record struct {
	Total   *int  `json:"total"`
	Success *int  `json:"success"`
	Data    []int `json:"data"`
	Group   *int  `json:"group"`
}

func (r *record) empty() bool {
	return r.Total == nil && r.Success == nil && r.Data == nil && r.Group == nil
}

func toRecord(v *Variation) *record {
	if v == nil {
		return &record{}
	}
	total, success := v.total, v.success
	r := &record{Total: &total, Success: &success, Data: v.Data()}
	if g, ok := v.Group(); ok {
		r.Group = &g
	}
	return r
}

func fromRecord(r *record) (*Variation, error) {
	var opts []Option
	if r.Group != nil {
		opts = append(opts, WithGroup(*r.Group))
	}
	if r.Data != nil {
		return FromData(r.Data, opts...)
	}

	var total, success int
	if r.Total != nil {
		total = *r.Total
	}
	if r.Success != nil {
		success = *r.Success
	}
	return New(total, success, opts...)
}

// MarshalJSON encodes the collection in the exchange format
func (c *Collection) MarshalJSON() ([]byte, error) {
	m := make(map[string]*record, len(c.treatments)+1)
	m[controlKey] = toRecord(c.control)
	for i, t := range c.treatments {
		m[strconv.Itoa(i+1)] = toRecord(t)
	}
	return json.Marshal(m)
}

// UnmarshalJSON replaces the collection contents with the decoded payload.
// On failure the collection is left unchanged.
func (c *Collection) UnmarshalJSON(b []byte) error {
	var m map[string]*record
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	ctrl, ok := m[controlKey]
	if !ok || ctrl == nil {
		return fmt.Errorf("%w: missing control record %q", ErrParse, controlKey)
	}

	var control *Variation
	if !ctrl.empty() {
		v, err := fromRecord(ctrl)
		if err != nil {
			return fmt.Errorf("%w: control: %w", ErrParse, err)
		}
		control = v
	}

	records := make(map[int]*record, len(m)-1)
	keys := make([]int, 0, len(m)-1)
	for k, r := range m {
		if k == controlKey {
			continue
		}
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: invalid treatment key %q", ErrParse, k)
		}
		if _, dup := records[n]; dup {
			return fmt.Errorf("%w: duplicate treatment key %q", ErrParse, k)
		}
		records[n] = r
		keys = append(keys, n)
	}
	sort.Ints(keys)

	treatments := make([]*Variation, 0, len(keys))
	for _, n := range keys {
		r := records[n]
		if r == nil {
			return fmt.Errorf("%w: treatment %d is null", ErrParse, n)
		}
		v, err := fromRecord(r)
		if err != nil {
			return fmt.Errorf("%w: treatment %d: %w", ErrParse, n, err)
		}
		treatments = append(treatments, v)
	}

	c.control = control
	c.treatments = treatments
	return nil
}

// Serialize dumps the collection to its exchange-format string
func (c *Collection) Serialize() (string, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("serialize collection: %w", err)
	}
	return string(b), nil
}

// Deserialize loads the collection from an exchange-format string
func (c *Collection) Deserialize(s string) error {
	return c.UnmarshalJSON([]byte(s))
}
