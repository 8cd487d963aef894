// Package ancestry работает с материализованными путями предков вида "1>10>11".
// Путь сотрудника содержит цепочку руководителей от корня до его
// непосредственного руководителя и не включает самого сотрудника.
package ancestry

import (
	"fmt"
	"strconv"
	"strings"
)

// Separator разделяет идентификаторы в пути
const Separator = ">"

// Append возвращает путь, продолженный идентификатором id.
// Для пустого пути результатом будет сам id.
func Append(path *string, id int64) string {
	idStr := strconv.FormatInt(id, 10)
	if path == nil || *path == "" {
		return idStr
	}
	return *path + Separator + idStr
}

// InSubtree сообщает, лежит ли path под префиксом prefix:
// path совпадает с prefix или начинается с prefix + ">".
func InSubtree(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+Separator)
}

// RewritePrefix заменяет ведущий oldPrefix на newPrefix.
// Сравнение буквальное и выровнено по границе идентификатора:
// пути, не попадающие под InSubtree, возвращаются без изменений.
func RewritePrefix(path, oldPrefix, newPrefix string) string {
	if !InSubtree(path, oldPrefix) {
		return path
	}
	return newPrefix + path[len(oldPrefix):]
}

// Parse разбирает путь на идентификаторы
func Parse(path string) ([]int64, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, Separator)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ancestor path %q: %w", path, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Depth возвращает число предков в пути
func Depth(path *string) int {
	if path == nil || *path == "" {
		return 0
	}
	return strings.Count(*path, Separator) + 1
}

// Last возвращает последний идентификатор пути, т.е. непосредственного руководителя.
func Last(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	idx := strings.LastIndex(path, Separator)
	id, err := strconv.ParseInt(path[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// EscapeLike экранирует метасимволы LIKE, чтобы префикс сравнивался буквально.
// Предполагается ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
