// Package store 提供法规条文分块的向量存储层。
//
// 该包定义了向量存储的接口抽象和 Milvus 实现，
// 支持分块的幂等写入、带元数据过滤的相似度检索和统计功能。
package store
