package service

import "math/rand/v2"

// ComputeOrder 计算参赛者看到题目的顺序。shuffle 为 true 时用 r 做均匀的
// Fisher-Yates 洗牌（r 为 nil 时使用全局随机源），否则保持录入顺序。
// 不会修改 ids
func ComputeOrder(ids []string, shuffle bool, r *rand.Rand) []string {
	order := make([]string, len(ids))
	copy(order, ids)
	if !shuffle {
		return order
	}
	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}
	for i := len(order) - 1; i > 0; i-- {
		j := intN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
