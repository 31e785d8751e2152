// Package bankcache is a hierarchical cache of banks and keys kept in redis.
//
// A bank is a slash separated path such as "minions/web01.example.com/mine"
// and behaves like a directory: it may hold sub-banks and keys. Redis has no
// notion of a tree so the hierarchy is emulated with three families of redis
// keys (shown with the default layout):
//
//	$BANK_<path>           set of the names of the direct child banks of path
//	$BANKEYS_<path>        set of the names of the keys stored in path
//	$KEY_<path>/<key>      the serialised value of key
//	$TSTAMP_<path>/<key>   unix milliseconds of the last store of key
//
// A bank is discoverable by List and by a recursive Flush only if its name
// is in its parent's child set. Store registers every missing segment of the
// path on the way down.
//
// Writes for one operation are queued on a single pipeline so they cost one
// round trip. Pipelines are not transactions: if the connection fails between
// queueing and execution some of the writes may have been applied and others
// not. A crash mid write can leave a value without its bank registered, or a
// registered bank without its value. The cache never scans the keyspace with
// KEYS, so a recursive flush discovers descendant banks by walking the child
// sets, one round trip per bank, before deleting everything in one batch.
//
// A missing bank and an empty bank are indistinguishable: both list as empty.
//
// Redis errors are returned as *Error, which matches ErrCache. Errors that
// came from the network are additionally marked transient (see
// errhandling.IsTransient). The cache itself never retries.
package bankcache
