package core

// RecallConfig 是召回相关的默认值接口。
type RecallConfig interface {
	// DefaultTopKItems 返回默认的推荐条数 m
	DefaultTopKItems() int

	// DefaultVotePoolFactor 返回计票推荐的候选池系数（池达到 factor*m 时停止扫描邻居）
	DefaultVotePoolFactor() int

	// DefaultWeightedPoolFactor 返回加权推荐的候选池系数
	DefaultWeightedPoolFactor() int

	// DefaultFactorRank 返回默认的 SVD 秩
	DefaultFactorRank() int

	// DefaultMaxFeatures 返回默认的 TF-IDF 特征上限
	DefaultMaxFeatures() int
}

// DefaultRecallConfig 是默认的召回配置实现。
type DefaultRecallConfig struct{}

func (c *DefaultRecallConfig) DefaultTopKItems() int { return 10 }

func (c *DefaultRecallConfig) DefaultVotePoolFactor() int { return 3 }

func (c *DefaultRecallConfig) DefaultWeightedPoolFactor() int { return 5 }

func (c *DefaultRecallConfig) DefaultFactorRank() int { return 50 }

func (c *DefaultRecallConfig) DefaultMaxFeatures() int { return 8000 }

// Defaults 是全局共享的默认配置。
var Defaults RecallConfig = &DefaultRecallConfig{}
