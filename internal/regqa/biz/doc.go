// Package biz 提供查询解析服务的业务逻辑层。
//
// 该包采用分层架构，将业务逻辑拆分为以下组件：
//   - WebQA: 负责联网问答（域名受限检索、引用过滤与打分）
//   - Retriever: 负责向量检索（问题嵌入、元数据过滤搜索）
//   - Reranker: 负责候选条文的 LLM 重排（可选，失败时静默降级）
//   - Composer: 负责从检索命中组装带引用的条文式回答
//   - Indexer: 负责法规分块的校验、嵌入补全与入库
//   - QueryService: 组合以上组件，按固定顺序尝试各检索后端，
//     全部失败时返回携带官方链接提示的拒答
package biz
