package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olivere/elastic/v7"

	"locator/internal/candidate"
	"locator/internal/geo"
	"locator/internal/metrics"
)

// OpenElastic 单节点连接；关闭嗅探与健康检查，适配容器内单实例部署
func OpenElastic(url string) (*elastic.Client, error) {
	return elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
}

// retailerDoc 索引文档结构
type retailerDoc struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Address  string           `json:"address"`
	City     string           `json:"city"`
	Postcode string           `json:"postcode"`
	Phone    string           `json:"phone"`
	Email    string           `json:"email"`
	Website  string           `json:"website"`
	Tier     int              `json:"tier"`
	Location elastic.GeoPoint `json:"location"`
}

// Elastic 从索引中读取全部门店文档
// 约束：单次查询最多 Limit 条；超出部分不会返回
type Elastic struct {
	client *elastic.Client
	index  string
	limit  int
}

func NewElastic(client *elastic.Client, index string, limit int) *Elastic {
	if limit <= 0 {
		limit = 10000
	}
	return &Elastic{client: client, index: index, limit: limit}
}

func (s *Elastic) Fetch(ctx context.Context) ([]candidate.Candidate, error) {
	t0 := time.Now()
	metrics.SourceRequestsTotal.WithLabelValues("elastic").Inc()
	cands, err := s.fetch(ctx)
	return instrument("elastic", t0, cands, err)
}

func (s *Elastic) fetch(ctx context.Context) ([]candidate.Candidate, error) {
	res, err := s.client.Search().
		Index(s.index).
		Query(elastic.NewMatchAllQuery()).
		Sort("_doc", true).
		Size(s.limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]candidate.Candidate, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var d retailerDoc
		if err := json.Unmarshal(hit.Source, &d); err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.Id, err)
		}
		if d.ID == "" {
			d.ID = hit.Id
		}
		pos := geo.Position{Lat: d.Location.Lat, Lng: d.Location.Lon}
		if !pos.Valid() {
			return nil, fmt.Errorf("hit %s: %w", d.ID, candidate.ErrInvalidPosition)
		}
		out = append(out, candidate.Candidate{
			ID: d.ID, Name: d.Name, Address: d.Address, City: d.City, Postcode: d.Postcode,
			Phone: d.Phone, Email: d.Email, Website: d.Website, Position: pos, Tier: d.Tier,
		})
	}
	return out, nil
}
