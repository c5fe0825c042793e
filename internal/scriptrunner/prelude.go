package scriptrunner

import "fmt"

// buildPrelude generates the Python source prepended to every user script.
// It defines a `tools` object whose attributes are callables; each call
// marshals a JSON-RPC tools/call request and POSTs it back to the
// adapter's own MCP endpoint, so a script can invoke any tool the device
// manifest exposes without ever holding a direct handle into the Go
// process. This loopback is what lets the script runner reenter the
// router instead of bypassing it, preserving the single-in-flight
// transaction guarantee on the serial link.
func buildPrelude(endpoint string) string {
	return fmt.Sprintf(`
import json as _json
import urllib.request as _urlreq

_MCP_ENDPOINT = %q

class _ToolError(RuntimeError):
    pass

def _call_tool(name, arguments):
    body = _json.dumps({
        "jsonrpc": "2.0",
        "id": 1,
        "method": "tools/call",
        "params": {"name": name, "arguments": arguments},
    }).encode("utf-8")
    req = _urlreq.Request(_MCP_ENDPOINT, data=body, headers={"Content-Type": "application/json"})
    with _urlreq.urlopen(req, timeout=30) as resp:
        parsed = _json.loads(resp.read().decode("utf-8"))
    if parsed.get("error"):
        raise _ToolError(parsed["error"].get("message", "tool call failed"))
    result = parsed.get("result", {})
    content = result.get("content", [])
    texts = [item["text"] for item in content if item.get("type") == "text"]
    if texts:
        return "\n".join(texts)
    return result

class _ToolsNamespace:
    def __getattr__(self, name):
        def _wrap_tool(**kwargs):
            return _call_tool(name, kwargs)
        return _wrap_tool

tools = _ToolsNamespace()
`, endpoint)
}
