package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const usage = `Usage: pagetracker [flags] <commande>

  health | version
  list
  add <url> [min max]
  start|stop|refresh|snapshots|delete <id>`

func main() {
	baseURL := flag.String("server", envOr("PT_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout HTTP")
	name := flag.String("name", "", "Nom de la tracking (add)")
	noStart := flag.Bool("no-start", false, "Créer sans démarrer (add)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	api := *baseURL + "/api/v1"

	switch cmd := args[0]; cmd {
	case "health":
		run(client, http.MethodGet, api+"/health", nil)
	case "version":
		run(client, http.MethodGet, api+"/version", nil)
	case "list":
		run(client, http.MethodGet, api+"/trackings", nil)
	case "add":
		if len(args) != 2 && len(args) != 4 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		body := map[string]any{"url": args[1], "name": *name, "start": !*noStart}
		if len(args) == 4 {
			var min, max int
			if _, err := fmt.Sscan(args[2], &min); err != nil {
				fmt.Fprintln(os.Stderr, "Intervalle invalide:", args[2])
				os.Exit(2)
			}
			if _, err := fmt.Sscan(args[3], &max); err != nil {
				fmt.Fprintln(os.Stderr, "Intervalle invalide:", args[3])
				os.Exit(2)
			}
			body["minInterval"], body["maxInterval"] = min, max
		}
		run(client, http.MethodPost, api+"/trackings", body)
	case "start", "stop", "refresh", "snapshots", "delete":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		u := api + "/trackings/" + url.PathEscape(args[1])
		switch cmd {
		case "delete":
			run(client, http.MethodDelete, u, nil)
		case "snapshots":
			run(client, http.MethodGet, u+"/snapshots", nil)
		default:
			run(client, http.MethodPost, u+"/"+cmd, nil)
		}
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

func run(client *http.Client, method, url string, body any) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Erreur:", err)
			os.Exit(1)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(b)) == 0 {
		fmt.Println(resp.Status)
		if resp.StatusCode >= 400 {
			os.Exit(1)
		}
		return
	}
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
		if resp.StatusCode >= 400 {
			os.Exit(1)
		}
		return
	}

	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
