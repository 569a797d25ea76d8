package utils

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination 分页请求参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageResult 分页响应结果
type PageResult struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int64       `json:"totalPages"`
}

// GetPageOffset 规范化页码与每页数量，返回偏移量
func (p *Pagination) GetPageOffset() (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return (p.Page - 1) * p.Limit, p.Limit
}

// NewPageResult p 需先经过 GetPageOffset 规范化
func NewPageResult(list interface{}, total int64, p Pagination) *PageResult {
	res := &PageResult{List: list, Total: total, Page: p.Page, Limit: p.Limit}
	if p.Limit > 0 {
		res.TotalPages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return res
}
