// Package localserver serves a local administration socket.
//
// The socket is a Unix domain socket created with mode 0600, so access is
// controlled by file system permissions instead of API keys. Each request
// is one line; each reply is one JSON line:
//
//	status      node and registry summary
//	reload      re-read the configuration file
//	snapshot    force a Raft snapshot (clustered nodes only)
//	shutdown    stop the server gracefully
//	quit        close the connection
//
// A reply is {"ok":true,"data":...} or {"ok":false,"error":"..."}.
package localserver
