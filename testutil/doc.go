// Copyright (c) CacheFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 CacheFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试与基准测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 缓存断言: SeedCache / AssertCacheHit / AssertCacheMiss /
    AssertErrorCode，面向 cache.Cache 的读写验证
  - 断言工具: AssertJSONEqual / AssertNoError / AssertError /
    AssertContains 等
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON / MustType，
    简化测试数据与类型提示构造
  - 基准辅助: BenchmarkHelper 封装 testing.B 常用操作

# 子包

  - testutil/mocks: Mock 实现，包括 MockCache（cache.Cache）与
    MockFactory（cache.Factory），均支持 Builder 模式、错误注入
    和调用记录
  - testutil/fixtures: 测试数据工厂，提供预置应用配置、缓存模板、
    YAML 配置文档、示例条目与缓存参数等样例

# 使用示例

	ctx := testutil.TestContext(t)
	c := mocks.NewMockCache("users").WithEntry("k", "v")
	v, err := c.Get(ctx, "k")
	testutil.AssertNoError(t, err)
*/
package testutil
