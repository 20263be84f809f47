package httpapi

import (
	"fmt"

	"github.com/gin-gonic/gin"

	jsoniter "github.com/json-iterator/go"

	"github.com/devbox-run/agent/internal/logbuf"
	"github.com/devbox-run/agent/internal/pathutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func resolvePath(workspaceRoot, userPath string) string {
	return pathutil.ValidatePath(workspaceRoot, userPath)
}

// writeSSEStream sets the SSE headers and calls produce with a send
// callback that frames each event as "event: <name>\ndata: <json>\n\n",
// flushing after every write. Grounded on the donor's custom SSE
// ResponseWriter in src/handler/process.go, adapted to gin's own Flusher.
func writeSSEStream(c *gin.Context, produce func(send func(event string, data interface{}))) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(interface{ Flush() })
	send := func(event string, data interface{}) {
		body, err := json.Marshal(data)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, body)
		if ok {
			flusher.Flush()
		}
	}
	produce(send)
}

// streamLogLines replays historical lines as SSE "log" events, then
// follows consumer live until the client disconnects or the consumer is
// torn down.
func streamLogLines(c *gin.Context, historical []string, consumer *logbuf.Consumer) {
	writeSSEStream(c, func(send func(event string, data interface{})) {
		for _, line := range historical {
			send("log", map[string]interface{}{"line": line, "isHistory": true})
		}
		ctxDone := c.Request.Context().Done()
		for {
			select {
			case line, ok := <-consumer.Ch:
				if !ok {
					return
				}
				send("log", map[string]interface{}{"line": line, "isHistory": false})
			case <-consumer.Done():
				return
			case <-ctxDone:
				return
			}
		}
	})
}
