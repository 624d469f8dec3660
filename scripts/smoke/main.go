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
	"time"

	"github.com/vovakirdan/batepapo-server/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Printf("smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:5000", "server base URL")
	user := flag.String("user", "tester", "participant name to register")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	call := func(method, path string, body any, want int) ([]byte, error) {
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, *addr+path, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User", *user)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s %s: %w", method, path, err)
		}
		if resp.StatusCode != want {
			return nil, fmt.Errorf("%s %s: expected %d, got %d: %s", method, path, want, resp.StatusCode, raw)
		}
		fmt.Printf("%s %s -> %d\n", method, path, resp.StatusCode)
		return raw, nil
	}

	if _, err := call(http.MethodPost, "/participants", map[string]string{"name": *user}, http.StatusCreated); err != nil {
		return err
	}
	if _, err := call(http.MethodPost, "/messages", map[string]string{"to": "Todos", "text": *text, "type": "message"}, http.StatusCreated); err != nil {
		return err
	}
	if _, err := call(http.MethodPost, "/status", nil, http.StatusOK); err != nil {
		return err
	}

	raw, err := call(http.MethodGet, "/messages?limit=5", nil, http.StatusOK)
	if err != nil {
		return err
	}
	var messages []store.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return fmt.Errorf("unmarshal messages: %w", err)
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s -> %s (%s): %s\n", m.Time, m.From, m.To, m.Type, m.Text)
	}
	return nil
}
