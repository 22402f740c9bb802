package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("base-url", "http://localhost:8083", "Booking service base URL")
}

var watchCmd = &cobra.Command{
	Use:   "watch EXPERT_ID",
	Short: "Follow an expert's availability as slots are booked",
	Long: `Subscribe to the event stream, fetch an expert's computed availability,
then print the updated schedule every time one of their slots is booked.
Stops on Ctrl-C or when the server closes the stream.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("base-url")
	return watch(cmd.Context(), http.DefaultClient, strings.TrimRight(baseURL, "/"), args[0], cmd.OutOrStdout())
}

// watch subscribes before fetching, so a booking that lands between the two
// requests is either in the fetched view or delivered on the stream.
func watch(ctx context.Context, client *http.Client, baseURL, expertID string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/api/v1/events?expert_id="+url.QueryEscape(expertID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe: unexpected status %d", resp.StatusCode)
	}

	stream := bufio.NewReader(resp.Body)
	if err := awaitConnected(stream); err != nil {
		return err
	}

	view, err := fetchExpert(ctx, client, baseURL, expertID)
	if err != nil {
		return err
	}
	printView(out, view)

	err = readEvents(stream, func(name string, data []byte) {
		if name != "slot_booked" {
			return
		}
		var ev model.SlotEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			fmt.Fprintf(out, "skipping malformed event: %v\n", err)
			return
		}
		if availability.Apply(&view, ev) {
			fmt.Fprintf(out, "\nbooked %s %s\n", ev.Date, ev.TimeSlot)
			printView(out, view)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// awaitConnected consumes the stream up to the server's ": connected"
// comment, which is written once the subscription is registered.
func awaitConnected(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if strings.TrimRight(line, "\r\n") == ": connected" {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("subscribe: stream closed before it was ready")
			}
			return fmt.Errorf("subscribe: %w", err)
		}
	}
}

func fetchExpert(ctx context.Context, client *http.Client, baseURL, expertID string) (model.ExpertDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/experts/"+url.PathEscape(expertID), nil)
	if err != nil {
		return model.ExpertDetail{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return model.ExpertDetail{}, fmt.Errorf("fetch expert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return model.ExpertDetail{}, fmt.Errorf("fetch expert: status %d: %s", resp.StatusCode, body.Error)
	}
	var payload struct {
		Data model.ExpertDetail `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.ExpertDetail{}, fmt.Errorf("decode expert: %w", err)
	}
	return payload.Data, nil
}

// readEvents parses a text/event-stream body and calls fn once per
// dispatched event. Comment lines and ids are ignored.
func readEvents(r io.Reader, fn func(name string, data []byte)) error {
	scanner := bufio.NewScanner(r)
	var (
		name string
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if name == "" {
					name = "message"
				}
				fn(name, []byte(strings.Join(data, "\n")))
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

func printView(out io.Writer, view model.ExpertDetail) {
	fmt.Fprintf(out, "%s (%s, %s)\n", view.Name, view.Title, view.Category)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, day := range view.Availability {
		cells := make([]string, 0, len(day.Slots))
		for _, s := range day.Slots {
			if s.IsBooked {
				cells = append(cells, s.Time+" x")
			} else {
				cells = append(cells, s.Time+"  ")
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", day.Date, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}
