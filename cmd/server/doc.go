// Command server runs the playground host: the HTTP surface the editor
// talks to and the WebSocket boundary the sandbox iframe connects back
// through. With -headless an in-process sandbox is attached instead, which
// is how CI exercises the full run loop without a browser.
package main
