// Package store 提供 core.Store / core.KeyValueStore / core.InteractionStore 的实现。
//
// 接口定义在 core 包，此包只包含后端：
//   - MemoryStore：进程内，用于测试/开发
//   - RedisStore：go-redis，外层包一层熔断
//   - SQLStore：sqlx，postgres 或 sqlite 上的交互表与文章表
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	adapter := recall.NewStoreInteractionAdapter(s, "artrec")
package store
