package qos

// ============================================================================
//                              RxO 兼容性
// ============================================================================

// compatRule 单个策略的 offered/requested 比较规则，返回 true 表示兼容
type compatRule struct {
	kind  PolicyKind
	check func(offered, requested Set) bool
}

// compatRules 按策略标识升序排列，决定首个不兼容策略的报告顺序
var compatRules = []compatRule{
	{PolicyDurability, func(o, r Set) bool {
		return o.Durability().Kind >= r.Durability().Kind
	}},
	{PolicyPresentation, func(o, r Set) bool {
		op, rp := o.Presentation(), r.Presentation()
		if op.AccessScope < rp.AccessScope {
			return false
		}
		if rp.CoherentAccess && !op.CoherentAccess {
			return false
		}
		return !rp.OrderedAccess || op.OrderedAccess
	}},
	{PolicyDeadline, func(o, r Set) bool {
		return o.Deadline().Period <= r.Deadline().Period
	}},
	{PolicyLatencyBudget, func(o, r Set) bool {
		return o.LatencyBudget().Duration <= r.LatencyBudget().Duration
	}},
	{PolicyOwnership, func(o, r Set) bool {
		return o.Ownership().Kind == r.Ownership().Kind
	}},
	{PolicyLiveliness, func(o, r Set) bool {
		ol, rl := o.Liveliness(), r.Liveliness()
		return ol.Kind >= rl.Kind && ol.LeaseDuration <= rl.LeaseDuration
	}},
	{PolicyReliability, func(o, r Set) bool {
		return o.Reliability().Kind >= r.Reliability().Kind
	}},
	{PolicyDestinationOrder, func(o, r Set) bool {
		return o.DestinationOrder().Kind >= r.DestinationOrder().Kind
	}},
}

// Check 比较写端提供的策略与读端请求的策略
//
// 返回不兼容的策略类型；为空表示兼容。exhaustive 为 false 时
// 在第一个不兼容策略处停止。
func Check(offered, requested Set, exhaustive bool) []PolicyKind {
	var failed []PolicyKind
	for _, rule := range compatRules {
		if rule.check(offered, requested) {
			continue
		}
		failed = append(failed, rule.kind)
		if !exhaustive {
			break
		}
	}
	return failed
}

// CompatibilityKinds 返回参与兼容性比较的策略类型
func CompatibilityKinds() []PolicyKind {
	kinds := make([]PolicyKind, len(compatRules))
	for i, rule := range compatRules {
		kinds[i] = rule.kind
	}
	return kinds
}
