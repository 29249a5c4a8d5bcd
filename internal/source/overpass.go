package source

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/serjvanilla/go-overpass"

	"locator/internal/candidate"
	"locator/internal/geo"
	"locator/internal/metrics"
)

// Overpass 从 OSM 查询指定范围内带 shop 标签的节点与路径
// 约束：路径取节点均值作为位置；brand 标签与 PreferredBrands 匹配的门店赋 1 级
type Overpass struct {
	client          overpass.Client
	bbox            string
	shop            string
	PreferredBrands map[string]bool
}

// NewOverpass bbox 形如 "south,west,north,east"
func NewOverpass(endpoint, bbox, shop string, timeout time.Duration) *Overpass {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Overpass{
		client: overpass.NewWithSettings(endpoint, 2, httpClient),
		bbox:   bbox,
		shop:   shop,
	}
}

func (s *Overpass) query() string {
	sel := `["shop"]`
	if s.shop != "" {
		sel = fmt.Sprintf(`["shop"=%q]`, s.shop)
	}
	return fmt.Sprintf(`[out:json];(node%[1]s(%[2]s);way%[1]s(%[2]s););out body;>;out skel qt;`, sel, s.bbox)
}

func (s *Overpass) Fetch(ctx context.Context) ([]candidate.Candidate, error) {
	t0 := time.Now()
	metrics.SourceRequestsTotal.WithLabelValues("overpass").Inc()
	cands, err := s.fetch(ctx)
	return instrument("overpass", t0, cands, err)
}

func (s *Overpass) fetch(ctx context.Context) ([]candidate.Candidate, error) {
	type out struct {
		res overpass.Result
		err error
	}
	ch := make(chan out, 1)
	go func() {
		res, err := s.client.Query(s.query())
		ch <- out{res, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		return s.convert(&o.res), nil
	}
}

func (s *Overpass) convert(res *overpass.Result) []candidate.Candidate {
	var cands []candidate.Candidate
	for _, n := range res.Nodes {
		if len(n.Tags) == 0 || n.Tags["shop"] == "" {
			continue
		}
		pos := geo.Position{Lat: n.Lat, Lng: n.Lon}
		if !pos.Valid() {
			continue
		}
		cands = append(cands, s.fromTags("node/"+strconv.FormatInt(n.ID, 10), n.Tags, pos))
	}
	for _, w := range res.Ways {
		if w.Tags["shop"] == "" || len(w.Nodes) == 0 {
			continue
		}
		var lat, lon float64
		count := 0
		for _, n := range w.Nodes {
			if n == nil {
				continue
			}
			lat += n.Lat
			lon += n.Lon
			count++
		}
		if count == 0 {
			continue
		}
		pos := geo.Position{Lat: lat / float64(count), Lng: lon / float64(count)}
		cands = append(cands, s.fromTags("way/"+strconv.FormatInt(w.ID, 10), w.Tags, pos))
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
	return cands
}

func (s *Overpass) fromTags(id string, tags map[string]string, pos geo.Position) candidate.Candidate {
	name := tags["name"]
	if name == "" {
		name = tags["brand"]
	}
	street := tags["addr:street"]
	if hn := tags["addr:housenumber"]; hn != "" && street != "" {
		street = hn + " " + street
	}
	c := candidate.Candidate{
		ID:       id,
		Name:     name,
		Address:  street,
		City:     tags["addr:city"],
		Postcode: tags["addr:postcode"],
		Phone:    firstTag(tags, "phone", "contact:phone"),
		Email:    firstTag(tags, "email", "contact:email"),
		Website:  firstTag(tags, "website", "contact:website"),
		Position: pos,
	}
	if s.PreferredBrands[tags["brand"]] {
		c.Tier = 1
	}
	return c
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}
