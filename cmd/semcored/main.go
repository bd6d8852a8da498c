// Command semcored boots the semantic inference core and serves chat_query
// over a minimal HTTP endpoint. The HTTP surface itself — routing, CORS,
// JSON envelope formatting beyond the bare minimum — is out of scope for
// this module (section 1); this binary exists only to exercise the wiring
// end to end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/nlsql/semcore/inference"
	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/poolrouter"
	"github.com/nlsql/semcore/reload"
	"github.com/nlsql/semcore/semcore"
	"github.com/nlsql/semcore/semindex"
	"github.com/nlsql/semcore/tokenizer"
	"github.com/nlsql/semcore/util"
)

type options struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"meta-database connection string" required:"true"`
	Listen      string `long:"listen" env:"LISTEN_ADDR" default:":8080" description:"address to serve chat_query on"`
	Strict      bool   `long:"strict-tbox" env:"STRICT_TBOX" description:"report queries matching more than one metric as ambiguous instead of anchoring on the first match (T-Box violations are always dropped)"`
	Dict        string `long:"dict" env:"TOKENIZER_DICT" description:"path to a custom base tokenizer dictionary"`
}

func main() {
	util.InitSlog()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	store, err := ontology.NewStore(opts.DatabaseURL)
	if err != nil {
		log.Fatalf("open meta-db: %s", err)
	}
	defer store.Close()

	tok, err := tokenizer.New(opts.Dict)
	if err != nil {
		log.Fatalf("load tokenizer dictionary: %s", err)
	}

	index := semindex.NewHolder(nil)
	reloader := reload.New(store, index, tok)
	if err := reloader.Run(context.Background()); err != nil {
		log.Fatalf("initial reload: %s", err)
	}

	engine := inference.New(index, tok, store)
	engine.Strict = opts.Strict

	router := poolrouter.NewRouter(store)
	state := semcore.NewState(index, engine, store, router)

	http.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		resp := state.ChatQuery(query)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("encode response", "error", err)
		}
	})

	http.HandleFunc("/admin/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := reloader.Run(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	slog.Info("semcored listening", "addr", opts.Listen)
	log.Fatal(http.ListenAndServe(opts.Listen, nil))
}
