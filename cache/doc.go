// Copyright (c) CacheFlow Authors.
// Licensed under the MIT License.

/*
包 cache 提供与后端无关的缓存管理器核心，按名称与类型签名
组织缓存实例，统一管理创建、查找与生命周期。

# 概述

本包通过 Manager 维护一个两级并发注册表：外层按缓存名称索引，
内层按键值类型签名索引，同名缓存可按签名共存。显式创建路径
（CreateCache）做名称级查重；类型化查找路径（LookupCache）按
精确签名命中，未命中不隐式创建。并发创建经 singleflight 合并，
同一 (名称, 签名) 的工厂调用至多执行一次。

# 核心类型

  - Manager：生命周期门面，提供创建、查找、枚举、销毁与关闭，
    并持有 URI、作用域与属性包构成的不可变身份。
  - TypeSignature：不可变的 (键类型, 值类型) 对，可直接作 map 键，
    nil 分量归一化为通配类型。
  - Cache：缓存实例统一接口，由各 store 实现。
  - Factory：缓存构造函数，由 Manager 在显式创建时按需调用。
  - View[K, V]：泛型类型安全视图，封装动态类型断言并以
    TYPE_MISMATCH 错误代替 panic。

# 生命周期语义

  - Close 幂等：重复关闭仅记录告警；关闭状态最后落位，
    管理的缓存先尽力逐个关闭。
  - DestroyCache 对移除的每个实例依次执行 clear 与 close，
    单实例失败（含 panic）不阻断整体清理，仅记 Debug 日志。
  - 关闭后除 IsClosed 与只读访问器外的操作返回 ILLEGAL_STATE。
*/
package cache
