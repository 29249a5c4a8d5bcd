package candidate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"locator/internal/geo"
)

var (
	ErrNotArray        = errors.New("candidate: payload is not an array")
	ErrInvalidPosition = errors.New("candidate: invalid position")
)

// record 来源载荷的单条记录；经纬度、编号可能是数字或数字字符串
type record struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	Postcode   flexString `json:"postcode"`
	PostalCode flexString `json:"postal_code"`
	Phone      flexString `json:"phone"`
	Email      string     `json:"email"`
	Website    string     `json:"website"`
	Latitude   flexFloat  `json:"latitude"`
	Longitude  flexFloat  `json:"longitude"`
	Tier       flexInt    `json:"tier"`
}

// Decode 解析来源返回的候选数组
// 约束：非数组载荷、无法解析的字段或非法坐标都视为整体失败，不做部分接收
func Decode(r io.Reader) ([]Candidate, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(b)
}

func DecodeBytes(b []byte) ([]Candidate, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var recs []record
	if err := json.Unmarshal(trimmed, &recs); err != nil {
		return nil, fmt.Errorf("candidate: decode: %w", err)
	}
	out := make([]Candidate, 0, len(recs))
	for i, rec := range recs {
		c, err := rec.candidate()
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (r record) candidate() (Candidate, error) {
	if !r.Latitude.set || !r.Longitude.set {
		return Candidate{}, ErrInvalidPosition
	}
	pos := geo.Position{Lat: float64(r.Latitude.v), Lng: float64(r.Longitude.v)}
	if !pos.Valid() {
		return Candidate{}, ErrInvalidPosition
	}
	postcode := string(r.Postcode)
	if postcode == "" {
		postcode = string(r.PostalCode)
	}
	return Candidate{
		ID:       string(r.ID),
		Name:     strings.TrimSpace(r.Name),
		Address:  strings.TrimSpace(r.Address),
		City:     strings.TrimSpace(r.City),
		Postcode: strings.TrimSpace(postcode),
		Phone:    strings.TrimSpace(string(r.Phone)),
		Email:    strings.TrimSpace(r.Email),
		Website:  strings.TrimSpace(r.Website),
		Position: pos,
		Tier:     int(r.Tier),
	}, nil
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type flexFloat struct {
	v   float64
	set bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = flexFloat{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPosition, raw)
	}
	*f = flexFloat{v: v, set: true}
	return nil
}

type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = 0
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("candidate: invalid tier %q", raw)
	}
	*n = flexInt(int(v))
	return nil
}
