package qos

import "path"

// PartitionsMatch 判断两个分区策略是否有交集
//
// 空分区列表等价于默认分区 ""。名称支持 path.Match 通配符，
// 但两端同时为通配符时不视为匹配。
func PartitionsMatch(a, b Partition) bool {
	an := a.Names
	if len(an) == 0 {
		an = []string{""}
	}
	bn := b.Names
	if len(bn) == 0 {
		bn = []string{""}
	}
	for _, x := range an {
		for _, y := range bn {
			if partitionNameMatch(x, y) {
				return true
			}
		}
	}
	return false
}

func partitionNameMatch(x, y string) bool {
	if x == y {
		return true
	}
	xw, yw := hasWildcard(x), hasWildcard(y)
	switch {
	case xw && yw:
		return false
	case xw:
		ok, err := path.Match(x, y)
		return err == nil && ok
	case yw:
		ok, err := path.Match(y, x)
		return err == nil && ok
	default:
		return false
	}
}

func hasWildcard(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[':
			return true
		}
	}
	return false
}
