package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 错误类别，HTTP 层据此映射状态码
type Kind string

const (
	KindInvalidName      Kind = "invalid_name"
	KindInvalidFile      Kind = "invalid_file"
	KindNotFound         Kind = "not_found"
	KindDuplicateSlug    Kind = "duplicate_slug"
	KindVersionConflict  Kind = "version_conflict"
	KindStorageWrite     Kind = "storage_write"
	KindStorageDelete    Kind = "storage_delete"
	KindStoreUnavailable Kind = "store_unavailable"
	KindPartialFailure   Kind = "partial_failure"
)

// 各类别的哨兵错误，配合 errors.Is 使用
var (
	ErrInvalidName      = &Error{Kind: KindInvalidName}
	ErrInvalidFile      = &Error{Kind: KindInvalidFile}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrDuplicateSlug    = &Error{Kind: KindDuplicateSlug}
	ErrVersionConflict  = &Error{Kind: KindVersionConflict}
	ErrStorageWrite     = &Error{Kind: KindStorageWrite}
	ErrStorageDelete    = &Error{Kind: KindStorageDelete}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrPartialFailure   = &Error{Kind: KindPartialFailure}
)

// Error 带上下文的业务错误
// Op: 操作名；Slug: 涉及的菜单 slug；Step: 出错时的文件序号（-1 表示与文件无关）；
// Paths: 与错误相关的存储路径（部分失败时为残留/未删除的对象）
type Error struct {
	Kind  Kind
	Op    string
	Slug  string
	Step  int
	Paths []string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Slug != "" {
		fmt.Fprintf(&b, " (slug=%s", e.Slug)
		if e.Step >= 0 {
			fmt.Fprintf(&b, ", step=%d", e.Step)
		}
		b.WriteString(")")
	}
	if len(e.Paths) > 0 {
		fmt.Fprintf(&b, " paths=%v", e.Paths)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按类别比较，使 errors.Is(err, ErrNotFound) 对任意 NotFound 错误成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建指定类别的错误
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Step: -1, Err: err}
}

// WithSlug 返回携带 slug 的副本
func (e *Error) WithSlug(slug string) *Error {
	cp := *e
	cp.Slug = slug
	return &cp
}

// KindOf 返回错误链上第一个 *Error 的类别，没有则为空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PartialFailure 构造部分失败错误：存储与数据库已不一致，需要对账
func PartialFailure(op, slug string, paths []string, cause error) *Error {
	return &Error{
		Kind:  KindPartialFailure,
		Op:    op,
		Slug:  slug,
		Step:  -1,
		Paths: paths,
		Err:   cause,
	}
}
