// Package redisserver serves read-mostly claim queries over the Redis
// serialization protocol (RESP2), so existing Redis clients and
// redis-cli can look up claims without an HTTP stack.
//
// Commands:
//
//	PING [message]
//	QUIT
//	AUTH <key_id> <key_secret> | AUTH <key_id>:<key_secret>
//	CL.REGISTRY                         field/value pairs
//	CL.SUPPLY                           integer
//	CL.GET <id>                         claim JSON, or null
//	CL.VERIFY <id>                      [owner, claim_data, metadata_uri]
//	CL.URI <id>                         metadata URI, or null
//	CL.TOKENS <address>                 array of token ids
//	CL.VALID <address>                  1 or 0
//	CL.MINT <owner> <uri> <data> [WAIT] submission id, or token id with WAIT
//	CL.SUBMISSION <id>                  field/value pairs
//
// CL.MINT and CL.SUBMISSION require AUTH with an issuer or admin key.
package redisserver
