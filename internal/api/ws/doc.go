/*
Package ws runs shell commands for browser clients over a WebSocket.

Client frames:

	{"type":"command","command":"npm install","cwd":"app"}
	{"type":"stop"}
	{"type":"ping"}

Server frames:

	{"type":"output","content":"...","command":"npm install"}
	{"type":"error","content":"...","command":"npm install"}
	{"type":"close","code":0,"command":"npm install"}
	{"type":"commandComplete","code":0,"command":"npx create-vite app","message":"..."}
	{"type":"pong"}

Every process a connection starts is owned by that connection and is
terminated when it sends stop or disconnects.
*/
package ws
