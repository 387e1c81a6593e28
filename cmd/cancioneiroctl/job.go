package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cancioneiro/internal/modkit/module"
	jobsdomain "cancioneiro/internal/services/jobs/domain"
	jobsmod "cancioneiro/internal/services/jobs/module"
	jobssvc "cancioneiro/internal/services/jobs/service"
	pipemod "cancioneiro/internal/services/pipeline/module"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create and drive annotation jobs",
	Long: `job talks to a running API (--api, default CORE_API_PUBLIC_URL) for every
subcommand except run, which creates the job and processes every chunk
inside this process.`,
}

func init() {
	jobCmd.PersistentFlags().String("api", "", "API base url (default CORE_API_PUBLIC_URL)")

	create := &cobra.Command{Use: "create", Short: "Create a job", RunE: runJobCreate}
	addCreateFlags(create)

	cont := &cobra.Command{Use: "continue <id>", Short: "Post one continuation", Args: cobra.ExactArgs(1), RunE: runJobContinue}
	cont.Flags().Bool("wait", true, "process the chunk inside the request")
	cont.Flags().Int("offset", 0, "cursor offset for corpus and words jobs")
	cont.Flags().Int("song", 0, "cursor song for artist jobs")
	cont.Flags().Int("word", 0, "cursor word for artist jobs")

	list := &cobra.Command{Use: "list", Short: "List jobs", RunE: runJobList}
	list.Flags().String("status", "", "filter by status")
	list.Flags().Int("limit", 20, "max jobs")

	run := &cobra.Command{Use: "run", Short: "Create a job and process it to the end in this process", RunE: runJobLocal}
	addCreateFlags(run)

	jobCmd.AddCommand(
		create, cont, list, run,
		jobAction("status", http.MethodGet, ""),
		jobAction("pause", http.MethodPost, "/pause"),
		jobAction("resume", http.MethodPost, "/resume"),
		jobAction("cancel", http.MethodPost, "/cancel"),
	)
	rootCmd.AddCommand(jobCmd)
}

func addCreateFlags(c *cobra.Command) {
	c.Flags().String("kind", "artist", "artist, corpus or words")
	c.Flags().String("target", "", "artist name for artist jobs")
	c.Flags().StringSlice("words", nil, "words for a words job; empty snapshots unclassified words")
	c.Flags().Int("chunk-size", 0, "units per chunk (0 = server default)")
	c.Flags().Bool("no-autostart", false, "create without scheduling the first chunk")
}

func createInput(cmd *cobra.Command) jobsdomain.CreateInput {
	kind, _ := cmd.Flags().GetString("kind")
	target, _ := cmd.Flags().GetString("target")
	words, _ := cmd.Flags().GetStringSlice("words")
	size, _ := cmd.Flags().GetInt("chunk-size")
	in := jobsdomain.CreateInput{Kind: jobsdomain.Kind(strings.ToLower(kind)), Target: target, Words: words, ChunkSize: size}
	if no, _ := cmd.Flags().GetBool("no-autostart"); no {
		off := false
		in.Autostart = &off
	}
	return in
}

func runJobCreate(cmd *cobra.Command, _ []string) error {
	return apiCall(cmd, http.MethodPost, "/jobs", createInput(cmd))
}

func runJobContinue(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}
	in := jobsdomain.ContinueInput{}
	in.Wait, _ = cmd.Flags().GetBool("wait")
	in.Cursor.Offset, _ = cmd.Flags().GetInt("offset")
	in.Cursor.Song, _ = cmd.Flags().GetInt("song")
	in.Cursor.Word, _ = cmd.Flags().GetInt("word")
	return apiCall(cmd, http.MethodPost, "/jobs/"+id.String()+"/continue", in)
}

func runJobList(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	return apiCall(cmd, http.MethodGet, fmt.Sprintf("/jobs?status=%s&limit=%d", status, limit), nil)
}

func jobAction(name, method, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return apiCall(cmd, method, "/jobs/"+id.String()+suffix, nil)
		},
	}
}

// apiCall sends body to the versioned API and prints the data part of the envelope
func apiCall(cmd *cobra.Command, method, path string, body any) error {
	base, _ := cmd.Flags().GetString("api")
	if base == "" {
		root, err := conf()
		if err != nil {
			return err
		}
		base = root.Prefix("CORE_API_").MayString("PUBLIC_URL", "http://127.0.0.1:4000")
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+"/api/v1"+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Error string          `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, env.Error)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, env.Data, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

// runJobLocal processes a job synchronously; continuations never leave the process
func runJobLocal(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	deps, closeFn, err := openDeps(ctx, "ctl")
	if err != nil {
		return err
	}
	defer closeFn()

	pipe := module.MustPortsOf[pipemod.Ports](pipemod.New(deps, pipemod.Options{})).Pipeline
	noop := jobssvc.TriggerFunc(func(context.Context, uuid.UUID, jobsdomain.Cursor) error { return nil })
	ports := module.MustPortsOf[jobsmod.Ports](jobsmod.New(deps, pipe, noop, jobsmod.Options{}))

	in := createInput(cmd)
	off := false
	in.Autostart = &off
	j, err := ports.Jobs.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "job %s: %d units in chunks of %d\n", j.ID, j.Total, j.ChunkSize)

	j, err = ports.Service.RunToEnd(ctx, j.ID)
	if err != nil {
		return err
	}
	v, err := ports.Jobs.Get(ctx, j.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
