// relayctl is a small operator tool: it fetches the relay's /metrics
// endpoint and renders the live subscription table.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"discord-relay/domain"
	"discord-relay/observability"
)

type metricsResponse struct {
	Relay    observability.Snapshot `json:"relay"`
	Registry domain.RegistryStats   `json:"registry"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "relay base URL")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*baseURL + "/metrics")
	if err != nil {
		log.Fatalf("Fetching metrics failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Relay answered %d", resp.StatusCode)
	}

	var metrics metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		log.Fatalf("Decoding metrics failed: %v", err)
	}

	header := fmt.Sprintf(" Relay %s | uptime %s | %d connection(s) | %d event(s) relayed ",
		*baseURL, metrics.Relay.Uptime, metrics.Relay.Connections, metrics.Relay.EventsRelayed)
	color.New(color.BgBlack, color.FgGreen).Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Channel", "Subscribers"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(lo.Map(metrics.Registry.PerTopic, func(row domain.ChannelCount, _ int) []string {
		return []string{row.ChannelID, strconv.Itoa(row.Subscribers)}
	}))
	table.SetFooter([]string{"Total", strconv.Itoa(metrics.Registry.TotalSubscriptions)})
	table.Render()
}
