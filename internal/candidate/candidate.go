// 包 candidate：候选门店记录与来源载荷解析
package candidate

import (
	"strings"

	"locator/internal/geo"
)

// Candidate 候选门店（加载后只读）
// 约束：Tier 为 0 表示未分级；派生字段（距离、加权分）不写回本结构
type Candidate struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Address  string       `json:"address"`
	City     string       `json:"city"`
	Postcode string       `json:"postcode"`
	Phone    string       `json:"phone,omitempty"`
	Email    string       `json:"email,omitempty"`
	Website  string       `json:"website,omitempty"`
	Position geo.Position `json:"position"`
	Tier     int          `json:"tier,omitempty"`
}

// AddressLine 列表与信息窗使用的单行地址，跳过空字段
func (c Candidate) AddressLine() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{c.Address, c.City, c.Postcode} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
