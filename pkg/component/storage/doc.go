// Package storage provides a unified client registry for the storage
// backends used by regqa: the Milvus vector index and the Redis answer
// cache.
//
// Each backend implements the Client interface (Name, Ping, Close). The
// Manager tracks registered clients by name, runs concurrent health
// checks through the shared worker pool, and closes everything during
// shutdown:
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("milvus", milvusClient)
//	mgr.MustRegister("redis", redisClient)
//
//	statuses := mgr.HealthCheckAll(ctx)
//	defer mgr.CloseAll()
//
// Errors are typed (StorageError) with stable codes so callers can
// match them with errors.Is regardless of the wrapped cause.
package storage
