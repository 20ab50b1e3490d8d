// Command test-e2e drives a running server end to end. It plays the frame
// host for a mount, acknowledging commands and emitting call events, while it
// joins, toggles and leaves a call through the session API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"humming/meet/internal/framews"
)

func main() {
	base := flag.String("server", "http://localhost:8080", "server base URL")
	mount := flag.String("mount", "e2e-"+time.Now().Format("150405"), "mount point to serve")
	room := flag.String("room", "E2E Check", "room to join")
	user := flag.String("user", "e2e-bot", "participant name")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Printf("=== E2E Check ===\n")
	fmt.Printf("Server: %s\nMount: %s\nRoom: %q\n\n", *base, *mount, *room)

	// Step 1: mint frame host credentials
	fmt.Println("[1] Minting frame credentials...")
	var creds struct {
		Token  string `json:"token"`
		WSPath string `json:"ws_path"`
	}
	if err := call(ctx, http.MethodPost, *base+"/frames", map[string]string{"mount": *mount}, &creds); err != nil {
		log.Fatalf("frames: %v", err)
	}

	// Step 2: connect as the frame host
	fmt.Println("[2] Connecting frame host...")
	wsURL := "ws" + strings.TrimPrefix(*base, "http") + creds.WSPath
	conn, _, err := ws.Dial(ctx, wsURL, &ws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + creds.Token}},
	})
	if err != nil {
		log.Fatalf("dial frame ws: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "e2e done")
	go serveFrame(ctx, conn)

	// Step 3: join through the session API
	fmt.Printf("[3] Joining as %q...\n", *user)
	path := *base + "/sessions/" + *mount
	if err := call(ctx, http.MethodPost, path+"/join", map[string]string{"roomId": *room, "userName": *user}, nil); err != nil {
		log.Fatalf("join: %v", err)
	}
	waitStatus(ctx, path, "joined")

	// Step 4: media toggles
	for _, action := range []string{"mute", "video", "mute", "video"} {
		fmt.Printf("[4] Toggling %s...\n", action)
		if err := call(ctx, http.MethodPost, path+"/"+action, nil, nil); err != nil {
			log.Fatalf("%s: %v", action, err)
		}
	}

	// Step 5: leave and dispose
	fmt.Println("[5] Leaving...")
	if err := call(ctx, http.MethodPost, path+"/leave", nil, nil); err != nil {
		log.Fatalf("leave: %v", err)
	}
	waitStatus(ctx, path, "idle")
	if err := call(ctx, http.MethodDelete, path, nil, nil); err != nil {
		log.Fatalf("dispose: %v", err)
	}

	fmt.Println("\n[*] E2E check passed")
}

// serveFrame acknowledges every command and answers join and leave with the
// events a real call frame would emit.
func serveFrame(ctx context.Context, c *ws.Conn) {
	for {
		var msg framews.Message
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			return
		}
		printCommand(msg)
		if msg.CommandID != "" {
			send(ctx, c, framews.Message{Type: framews.TypeAck, CommandID: msg.CommandID})
		}
		switch msg.Type {
		case framews.CmdJoin:
			send(ctx, c, framews.Message{Type: "joined-meeting"})
			send(ctx, c, framews.Message{Type: "participant-counts-updated", Payload: map[string]any{"present": 1}})
		case framews.CmdLeave:
			send(ctx, c, framews.Message{Type: "left-meeting"})
		}
	}
}

func send(ctx context.Context, c *ws.Conn, m framews.Message) {
	m.TsMs = time.Now().UnixMilli()
	if err := wsjson.Write(ctx, c, m); err != nil {
		fmt.Printf("[frame] write %s: %v\n", m.Type, err)
	}
}

func printCommand(m framews.Message) {
	ts := time.Now().Format("15:04:05.000")
	switch m.Type {
	case framews.CmdJoin:
		fmt.Printf("[%s] <- join: url=%v user=%v\n", ts, m.Payload["url"], m.Payload["user_name"])
	case framews.CmdSetLocalAudio, framews.CmdSetLocalVideo:
		fmt.Printf("[%s] <- %s: enabled=%v\n", ts, m.Type, m.Payload["enabled"])
	default:
		fmt.Printf("[%s] <- %s\n", ts, m.Type)
	}
}

func waitStatus(ctx context.Context, path, want string) {
	for {
		var out struct {
			Session struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"session"`
		}
		if err := call(ctx, http.MethodGet, path, nil, &out); err != nil {
			log.Fatalf("get session: %v", err)
		}
		fmt.Printf("    status=%s %s\n", out.Session.Status, out.Session.Error)
		if out.Session.Status == want {
			return
		}
		select {
		case <-ctx.Done():
			log.Fatalf("timed out waiting for %s", want)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func call(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out != nil {
		return json.Unmarshal(b, out)
	}
	return nil
}
