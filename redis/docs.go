// Package redis builds go-redis clients for the bank cache.
//
// Configuration normally comes from the environment:
//
//	REDIS_STORE_ADDRESS            host:port of a single node (default localhost:6379)
//	REDIS_STORE_DB                 database number (default 0)
//	REDIS_STORE_USERNAME           ACL user name (optional)
//	REDIS_STORE_PASSWORD_FILENAME  file holding the password (optional)
//	REDIS_UNIX_SOCKET_PATH         unix socket, overrides REDIS_STORE_ADDRESS
//	REDIS_CLUSTER_MODE             truthy to connect to a redis cluster
//	REDIS_CLUSTER_NODES            csv of cluster startup nodes
//	REDIS_TLS                      truthy to require TLS 1.2+
//	REDIS_CONNECT_ATTEMPTS         startup ping attempts (default 3)
//	REDIS_CONNECT_INTERVAL         delay between ping attempts (default 2s)
//
// Clients are returned as redis.UniversalClient so the same cache code runs
// against a single node or a cluster. The cache only ever pipelines
// single-key commands, which keeps cluster slot routing trivial.
package redis
