package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/razvanmacovei/untrack-operator/internal/extract"
	"github.com/razvanmacovei/untrack-operator/internal/gateway"
	"github.com/razvanmacovei/untrack-operator/internal/registry"
)

func main() {
	var rulesFile string
	var noBuiltin bool
	var gatewayURL string
	var list bool
	var dump bool

	flag.StringVar(&rulesFile, "rules", "", "YAML or JSON file with extra tracker rules.")
	flag.BoolVar(&noBuiltin, "no-builtin", false, "Do not load the built-in tracker rules.")
	flag.StringVar(&gatewayURL, "gateway", os.Getenv("UNTRACK_GATEWAY"), "Resolve through a running gateway, e.g. http://localhost:8403.")
	flag.BoolVar(&list, "list", false, "Print the loaded rules and exit.")
	flag.BoolVar(&dump, "dump", false, "Print the loaded rules as a rules file and exit.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] URL...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if gatewayURL != "" {
		if flag.NArg() == 0 {
			flag.Usage()
			os.Exit(2)
		}
		client := &http.Client{Timeout: 10 * time.Second}
		for _, u := range flag.Args() {
			resp, err := resolveRemote(client, gatewayURL, u)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			printResult(u, resp)
		}
		return
	}

	reg, err := loadRegistry(rulesFile, noBuiltin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if dump {
		data, err := registry.MarshalRules(reg.Rules())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	if list {
		for i, e := range reg.Entries() {
			fmt.Printf("%3d  %-55s %s\n", i, e.Pattern, extract.Describe(e.Strategy))
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	for _, u := range flag.Args() {
		out := reg.Resolve(u)
		resp := gateway.ResolveResponse{
			Action:      gateway.ActionAllow,
			RedirectURL: out.URL,
			Pattern:     out.Pattern,
			Reason:      out.Reason(),
		}
		if out.Redirect() {
			resp.Action = gateway.ActionRedirect
		}
		printResult(u, resp)
	}
}

func loadRegistry(rulesFile string, noBuiltin bool) (*registry.Registry, error) {
	var rules []registry.Rule
	if !noBuiltin {
		rules = append(rules, registry.DefaultRules()...)
	}
	if rulesFile != "" {
		fileRules, err := registry.LoadFile(rulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	return registry.New(rules)
}

func resolveRemote(client *http.Client, gatewayURL, rawURL string) (gateway.ResolveResponse, error) {
	var out gateway.ResolveResponse

	body, err := json.Marshal(gateway.ResolveRequest{URL: rawURL})
	if err != nil {
		return out, err
	}
	endpoint := strings.TrimRight(gatewayURL, "/") + "/v1/resolve"
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return out, fmt.Errorf("gateway returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode gateway response: %w", err)
	}
	return out, nil
}

func printResult(rawURL string, r gateway.ResolveResponse) {
	if r.Action == gateway.ActionRedirect {
		fmt.Printf("%s\n  -> %s\n  pattern: %s\n", rawURL, r.RedirectURL, r.Pattern)
		return
	}
	fmt.Printf("%s\n  %s (%s)\n", rawURL, r.Action, r.Reason)
}
