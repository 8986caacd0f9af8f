package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// slugSpace 空白字符集：除 ASCII 空白外还包括 \v、NBSP 等 Unicode 空格和 BOM
const slugSpace = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9` + slugSpace + `-]`)
	slugWhitespace   = regexp.MustCompile(`[` + slugSpace + `]+`)
	slugHyphens      = regexp.MustCompile(`-+`)
)

// Slugify 由菜单名生成 slug：小写，去掉 [a-z0-9] 空白和连字符之外的字符，
// 空白折叠为单个连字符，连续连字符合并，去掉首尾连字符。
// 结果为空时调用方须按 InvalidName 处理
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TitleFromSlug 由 slug 还原展示名：连字符换成空格，每个单词首字母大写
func TitleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		out = append(out, string(unicode.ToUpper(r))+w[size:])
	}
	return strings.Join(out, " ")
}
