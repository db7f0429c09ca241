package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"foxfeed/internal"
	"foxfeed/internal/config"
	"foxfeed/internal/connectors"
	gmailconnector "foxfeed/internal/connectors/gmail"
	imapconnector "foxfeed/internal/connectors/imap"
	"foxfeed/internal/enrich"
	"foxfeed/internal/fieldcat"
	"foxfeed/internal/listener"
	"foxfeed/internal/mapping"
	"foxfeed/internal/pipeline"
	"foxfeed/internal/scrape"
	"foxfeed/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "supplier:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "supplier name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" {
			must(fmt.Errorf("--name is required"))
		}
		sup, err := db.UpsertSupplier(*name)
		must(err)
		fmt.Printf("supplier id=%d name=%s\n", sup.ID, sup.Name)
	case "docs:register":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "supplier name")
		file := fs.String("file", "", "pdf catalog or html page")
		kind := fs.String("type", "pdf", "pdf|html")
		_ = fs.Parse(os.Args[2:])
		if *supplier == "" || *file == "" {
			must(fmt.Errorf("--supplier and --file are required"))
		}
		source := internal.SourcePDFCatalog
		if strings.ToLower(*kind) == "html" {
			source = internal.SourceHTMLPage
		}
		intake := pipeline.NewIntakeService(db, cfg)
		doc, err := intake.RegisterFile(*supplier, *file, source)
		must(err)
		fmt.Printf("document registered id=%d hash=%s\n", doc.ID, doc.Hash)
	case "docs:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		docID := fs.Int("id", 0, "specific document id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, makeFetcher(cfg))
		if *docID != 0 {
			res, err := processor.ProcessDocumentByID(context.Background(), *docID)
			must(err)
			fmt.Printf("processed document id=%d records=%d scraped=%d\n", res.DocumentID, res.Records, res.Scraped)
			return
		}
		results, err := processor.ProcessPending(context.Background(), *batch)
		must(err)
		total := 0
		for _, res := range results {
			total += res.Records
		}
		fmt.Printf("processed documents=%d records=%d\n", len(results), total)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.MailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d skipped=%d\n", *provider, result.Fetched, result.Stored, result.Skipped)
	case "mail:intake":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		intake := pipeline.NewIntakeService(db, cfg)
		res, err := intake.IntakePending(*batch)
		must(err)
		fmt.Printf("intake done mails=%d documents=%d skipped=%d\n", res.Mails, res.Documents, res.Skipped)
	case "scrape:page":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "supplier name")
		url := fs.String("url", "", "product page url")
		_ = fs.Parse(os.Args[2:])
		if *supplier == "" || *url == "" {
			must(fmt.Errorf("--supplier and --url are required"))
		}
		processor := pipeline.NewProcessingService(db, cfg, scrape.NewClient(cfg))
		res, err := processor.ProcessPage(context.Background(), *supplier, *url)
		must(err)
		fmt.Printf("scraped page document=%d records=%d\n", res.DocumentID, res.Records)
	case "enrich:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "supplier name")
		_ = fs.Parse(os.Args[2:])
		if *supplier == "" {
			must(fmt.Errorf("--supplier is required"))
		}
		svc := pipeline.NewEnrichService(db, cfg, enrich.NewRuleGenerator())
		res, err := svc.RunSupplier(context.Background(), *supplier)
		must(err)
		fmt.Printf("enrich done records=%d attributes=%d failed=%d\n", res.Records, res.Attributes, res.Failed)
	case "fields:discover":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "supplier name")
		_ = fs.Parse(os.Args[2:])
		if *supplier == "" {
			must(fmt.Errorf("--supplier is required"))
		}
		sup, err := db.GetSupplierByName(*supplier)
		must(err)
		rows, err := db.ListRecordsBySupplier(sup.ID)
		must(err)
		records := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			fields := map[string]any{}
			must(json.Unmarshal([]byte(row.DataJSON), &fields))
			records = append(records, fields)
		}
		for _, f := range fieldcat.Discover(records) {
			fmt.Printf("%-40s %-8s %5.0f%%  %s\n", f.Path, f.Type, f.Frequency*100, f.Sample)
		}
	case "mapping:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output yaml path")
		_ = fs.Parse(os.Args[2:])
		if *out == "" {
			must(fmt.Errorf("--out is required"))
		}
		must(mapping.SaveMappingFile(*out, mapping.DefaultMappingSet()))
		fmt.Printf("default mapping written to %s\n", *out)
	case "mapping:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		scope := fs.String("scope", "supplier", "supplier|tenant")
		supplier := fs.String("supplier", "", "supplier name (scope=supplier)")
		file := fs.String("file", "", "mapping yaml file")
		_ = fs.Parse(os.Args[2:])
		if *file == "" {
			must(fmt.Errorf("--file is required"))
		}
		set, err := mapping.LoadMappingFile(*file)
		must(err)
		svc := pipeline.NewExportService(db, cfg)
		var supplierID *int
		if *scope == "supplier" {
			if *supplier == "" {
				must(fmt.Errorf("--supplier is required for scope=supplier"))
			}
			sup, err := db.GetSupplierByName(*supplier)
			must(err)
			supplierID = &sup.ID
		}
		must(svc.SaveMappingSet(*scope, supplierID, set))
		fmt.Printf("mapping imported scope=%s fields=%d\n", *scope, len(set))
	case "export:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "supplier name")
		_ = fs.Parse(os.Args[2:])
		if *supplier == "" {
			must(fmt.Errorf("--supplier is required"))
		}
		svc := pipeline.NewExportService(db, cfg)
		res, err := svc.ExportSupplierCSV(*supplier)
		must(err)
		fmt.Printf("exported %d records to %s\n", res.Records, res.Path)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplier := fs.String("supplier", "", "supplier name")
		_ = fs.Parse(os.Args[2:])
		if *supplier == "" {
			must(fmt.Errorf("--supplier is required"))
		}
		svc := pipeline.NewExportService(db, cfg)
		res, err := svc.ExportSupplierXLSX(*supplier)
		must(err)
		fmt.Printf("exported %d records to %s\n", res.Records, res.Path)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap, empty skips mail fetch")
		_ = fs.Parse(os.Args[2:])
		var conn connectors.MailConnector
		if strings.TrimSpace(*provider) != "" {
			conn, err = makeConnector(cfg, *provider)
			must(err)
		}
		oneshot := pipeline.NewOneshot(db, cfg, conn, makeFetcher(cfg))
		res, err := oneshot.Run(context.Background())
		must(err)
		fmt.Printf("run done fetched=%d documents=%d records=%d exports=%d\n",
			res.MailsFetched, res.Documents, res.RecordsStored, len(res.Exports))
	case "mail:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func makeFetcher(cfg config.Config) pipeline.PageFetcher {
	if !cfg.ScrapeEnabled {
		return nil
	}
	return scrape.NewClient(cfg)
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: foxfeed <command>")
	fmt.Println("commands:")
	fmt.Println("  supplier:add --name=...")
	fmt.Println("  docs:register --supplier=... --file=katalog.pdf [--type=pdf|html]")
	fmt.Println("  docs:process [--id=1] [--batch=20]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:intake [--batch=20]")
	fmt.Println("  scrape:page --supplier=... --url=https://...")
	fmt.Println("  enrich:run --supplier=...")
	fmt.Println("  fields:discover --supplier=...")
	fmt.Println("  mapping:export --out=mapping.yaml")
	fmt.Println("  mapping:import --scope=supplier|tenant [--supplier=...] --file=mapping.yaml")
	fmt.Println("  export:csv --supplier=...")
	fmt.Println("  export:xlsx --supplier=...")
	fmt.Println("  run [--provider=gmail|imap]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
