package errstack

import (
	"strconv"
	"strings"
)

const (
	stubFile = "unknown file"
	stubLine = 0
)

// Record 一条错误记录
type Record struct {
	Kind   Kind
	Detail string
	Table  string
	// Query 出错的语句，没有时为空
	Query string
	File  string
	Line  int
	// Cause 底层错误，通常来自数据库驱动
	Cause error
}

func (r *Record) render(origin string) string {
	template := "{detail}"
	if info, ok := kindInfos[r.Kind]; ok {
		template = info.template
	}

	detail := r.Detail
	if detail == "" {
		detail = "no additional info"
	}

	msg := strings.NewReplacer(
		"{origin}", origin,
		"{detail}", detail,
		"{table}", r.Table,
	).Replace(template)

	if r.Query != "" {
		msg += "; query: " + r.Query
	}
	return msg
}

// Error 带调用位置的完整信息
func (r *Record) Error() string {
	return r.render(" (called from " + r.File + " line " + strconv.Itoa(r.Line) + ")")
}

// Plain 不带调用位置的信息
func (r *Record) Plain() string {
	return r.render("")
}

// Unwrap 同时暴露类别哨兵错误和底层错误
func (r *Record) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := r.Kind.Sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if r.Cause != nil {
		errs = append(errs, r.Cause)
	}
	return errs
}
