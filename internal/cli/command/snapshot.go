package command

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/valyala/fastjson"

	"github.com/yndnr/tuamail-go/internal/cli/output"
	"github.com/yndnr/tuamail-go/internal/server/config"
	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
)

// Exit codes.
const (
	exitFailure = 1
	exitFault   = 2
)

// SnapshotCommand returns the snapshot subcommand group.
func SnapshotCommand() *cli.Command {
	keyFlag := &cli.StringFlag{
		Name:    "key",
		Usage:   "Encryption master key (hex or raw) for encrypted snapshots",
		EnvVars: []string{"TUAMAIL_STORAGE__ENCRYPTION_KEY"},
	}

	return &cli.Command{
		Name:    "snapshot",
		Aliases: []string{"snap"},
		Usage:   "Inspect, verify and upgrade snapshot files",
		Subcommands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "Show envelope header, shape and collection counts",
				ArgsUsage: "FILE",
				Action:    snapshotInspect,
			},
			{
				Name:      "verify",
				Usage:     "Fully decode a snapshot; exits 2 when it cannot be restored",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{keyFlag},
				Action:    snapshotVerify,
			},
			{
				Name:      "upgrade",
				Usage:     "Re-encode a legacy or bare snapshot into the current envelope",
				ArgsUsage: "FILE OUT",
				Flags: []cli.Flag{
					keyFlag,
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite OUT if it exists",
					},
				},
				Action: snapshotUpgrade,
			},
			{
				Name:      "list",
				Usage:     "List the snapshot files of a snapshot directory",
				ArgsUsage: "DIR",
				Action:    snapshotList,
			},
		},
	}
}

// CollectionCount is one row of a per-collection summary.
type CollectionCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func newFieldTable() *output.Table {
	return &output.Table{Headers: []string{"FIELD", "VALUE"}}
}

func countRows(c snapshot.Counts) []CollectionCount {
	return []CollectionCount{
		{"users", c.Users},
		{"emails", c.Emails},
		{"sent_emails", c.SentEmails},
		{"stars", c.Stars},
		{"threads", c.Threads},
		{"messages", c.Messages},
		{"read_markers", c.ReadMarkers},
		{"reminders", c.Reminders},
	}
}

// InspectResult describes a snapshot file without decoding its payload.
type InspectResult struct {
	File        string            `json:"file" yaml:"file"`
	Size        int64             `json:"size" yaml:"size"`
	Checksum    string            `json:"checksum" yaml:"checksum"`
	Enveloped   bool              `json:"enveloped" yaml:"enveloped"`
	Version     int               `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Shape       snapshot.Shape    `json:"shape" yaml:"shape"`
	Encrypted   bool              `json:"encrypted" yaml:"encrypted"`
	Collections []CollectionCount `json:"collections" yaml:"collections"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Table lays the result out as FIELD/VALUE rows, counts last.
func (r *InspectResult) Table(wide bool) *output.Table {
	t := newFieldTable()
	t.AddRow("file", r.File)
	t.AddRow("size", fmt.Sprintf("%s (%d bytes)", humanize.Bytes(uint64(r.Size)), r.Size))
	if wide {
		t.AddRow("checksum", r.Checksum)
	}
	if r.Enveloped {
		t.AddRow("format", "envelope v"+strconv.Itoa(r.Version))
	} else {
		t.AddRow("format", "bare json")
	}
	if r.CreatedAt != nil {
		t.AddRow("created", fmt.Sprintf("%s (%s)", r.CreatedAt.Format(time.RFC3339), humanize.Time(*r.CreatedAt)))
	}
	t.AddRow("shape", string(r.Shape))
	t.AddRow("encrypted", strconv.FormatBool(r.Encrypted))
	for _, c := range r.Collections {
		t.AddRow(c.Name, humanize.Comma(int64(c.Count)))
	}
	if r.Error != "" {
		t.AddRow("error", r.Error)
	}
	return t
}

// Inspect reads the metadata of a snapshot blob. Enveloped blobs report their
// header, which stays readable when the payload is encrypted. Bare payloads
// are counted with a schema-free parse and then classified against the known
// shapes.
func Inspect(file string, blob []byte) *InspectResult {
	sum := sha256.Sum256(blob)
	r := &InspectResult{
		File:      file,
		Size:      int64(len(blob)),
		Checksum:  hex.EncodeToString(sum[:]),
		Enveloped: snapshot.IsEnveloped(blob),
	}

	if r.Enveloped {
		hdr, err := snapshot.ReadHeader(blob)
		if err != nil {
			r.Shape = snapshot.ShapeFault
			r.Error = err.Error()
			return r
		}
		created := time.UnixMilli(hdr.CreatedAt).UTC()
		r.Version = hdr.Version
		r.CreatedAt = &created
		r.Shape = hdr.Shape
		r.Encrypted = hdr.Encrypted
		r.Collections = countRows(hdr.Counts)
		return r
	}

	counts, err := bareCounts(blob)
	if err != nil {
		r.Shape = snapshot.ShapeFault
		r.Error = err.Error()
		return r
	}
	r.Collections = countRows(counts)

	shape, err := snapshot.ValidateShape(blob)
	r.Shape = shape
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

var parserPool fastjson.ParserPool

// bareCounts counts the entries of a bare state array by position, without
// checking element types. Three-element arrays are the legacy shape.
func bareCounts(data []byte) (snapshot.Counts, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return snapshot.Counts{}, fmt.Errorf("parse payload: %w", err)
	}
	parts, err := v.Array()
	if err != nil {
		return snapshot.Counts{}, fmt.Errorf("payload is not a collection array: %w", err)
	}

	at := func(i int) []*fastjson.Value {
		if i < len(parts) {
			return parts[i].GetArray()
		}
		return nil
	}
	sum := func(items []*fastjson.Value, field string) int {
		n := 0
		for _, item := range items {
			n += len(item.GetArray(field))
		}
		return n
	}

	c := snapshot.Counts{
		Users:      len(at(0)),
		Emails:     sum(at(1), "emails"),
		SentEmails: sum(at(2), "emails"),
	}
	if len(parts) > 3 {
		c.Stars = sum(at(3), "keys")
		c.Threads = len(at(4))
		c.Messages = sum(at(4), "messages")
		c.ReadMarkers = len(at(5))
		c.Reminders = sum(at(6), "reminders")
	}
	return c, nil
}

func snapshotInspect(c *cli.Context) error {
	file, err := argN(c, 1)
	if err != nil {
		return err
	}
	blob, err := readSnapshot(file[0])
	if err != nil {
		return err
	}

	r := Inspect(file[0], blob)
	if err := render(c, r); err != nil {
		return err
	}
	if r.Shape == snapshot.ShapeFault {
		return cli.Exit("", exitFault)
	}
	return nil
}

// VerifyResult is the outcome of a full decode.
type VerifyResult struct {
	File        string            `json:"file" yaml:"file"`
	Shape       snapshot.Shape    `json:"shape" yaml:"shape"`
	Collections []CollectionCount `json:"collections" yaml:"collections"`
}

// Table lays the result out as FIELD/VALUE rows.
func (r *VerifyResult) Table(bool) *output.Table {
	t := newFieldTable()
	t.AddRow("file", r.File)
	t.AddRow("shape", string(r.Shape))
	for _, c := range r.Collections {
		t.AddRow(c.Name, humanize.Comma(int64(c.Count)))
	}
	t.AddRow("result", "ok")
	return t
}

func snapshotVerify(c *cli.Context) error {
	args, err := argN(c, 1)
	if err != nil {
		return err
	}
	codec, err := codecFor(c)
	if err != nil {
		return err
	}
	blob, err := readSnapshot(args[0])
	if err != nil {
		return err
	}

	state, shape, err := codec.Decode(blob)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", args[0], err), exitFault)
	}
	return render(c, &VerifyResult{
		File:        args[0],
		Shape:       shape,
		Collections: countRows(state.Count()),
	})
}

// UpgradeResult reports a rewritten snapshot.
type UpgradeResult struct {
	Source    string         `json:"source" yaml:"source"`
	From      snapshot.Shape `json:"from" yaml:"from"`
	Output    string         `json:"output" yaml:"output"`
	Size      int64          `json:"size" yaml:"size"`
	Encrypted bool           `json:"encrypted" yaml:"encrypted"`
}

func snapshotUpgrade(c *cli.Context) error {
	args, err := argN(c, 2)
	if err != nil {
		return err
	}
	src, dst := args[0], args[1]

	if !c.Bool("force") {
		if _, err := os.Stat(dst); err == nil {
			return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", dst), exitFailure)
		}
	}

	codec, err := codecFor(c)
	if err != nil {
		return err
	}
	blob, err := readSnapshot(src)
	if err != nil {
		return err
	}

	state, shape, err := codec.Decode(blob)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", src, err), exitFault)
	}
	out, err := codec.Encode(state)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	if err := writeAtomic(dst, out); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	return render(c, &UpgradeResult{
		Source:    src,
		From:      shape,
		Output:    dst,
		Size:      int64(len(out)),
		Encrypted: c.String("key") != "",
	})
}

// ListEntry is one snapshot file of a directory listing.
type ListEntry struct {
	ID        string         `json:"id" yaml:"id"`
	Path      string         `json:"path" yaml:"path"`
	Size      int64          `json:"size" yaml:"size"`
	CreatedAt *time.Time     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Shape     snapshot.Shape `json:"shape" yaml:"shape"`
	Encrypted bool           `json:"encrypted" yaml:"encrypted"`
}

// Listing is a directory listing, oldest first.
type Listing []ListEntry

// Table lays the listing out one snapshot per row.
func (l Listing) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"ID", "SHAPE", "SIZE", "CREATED", "ENCRYPTED"}}
	if wide {
		t.Headers = append(t.Headers, "PATH")
	}
	for _, e := range l {
		created := "-"
		if e.CreatedAt != nil {
			created = e.CreatedAt.Format(time.RFC3339)
		}
		row := []string{e.ID, string(e.Shape), humanize.Bytes(uint64(e.Size)), created, strconv.FormatBool(e.Encrypted)}
		if wide {
			row = append(row, e.Path)
		}
		t.AddRow(row...)
	}
	return t
}

func snapshotList(c *cli.Context) error {
	args, err := argN(c, 1)
	if err != nil {
		return err
	}
	dir := args[0]
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return cli.Exit(fmt.Sprintf("%s is not a directory", dir), exitFailure)
	}

	mgr, err := snapshot.NewManager(snapshot.DefaultConfig(dir))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	infos, err := mgr.List()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	listing := Listing{}
	for _, info := range infos {
		e := ListEntry{ID: info.ID, Path: info.Path, Size: info.Size, Shape: snapshot.ShapeFault}
		if blob, err := os.ReadFile(info.Path); err == nil {
			if hdr, err := snapshot.ReadHeader(blob); err == nil {
				created := time.UnixMilli(hdr.CreatedAt).UTC()
				e.CreatedAt = &created
				e.Shape = hdr.Shape
				e.Encrypted = hdr.Encrypted
			}
		}
		listing = append(listing, e)
	}
	return render(c, listing)
}

func argN(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.HelpName, c.Command.ArgsUsage), exitFailure)
	}
	return c.Args().Slice(), nil
}

func readSnapshot(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitFailure)
	}
	return blob, nil
}

// codecFor builds a codec from the --key flag; no key means no cipher.
func codecFor(c *cli.Context) (*snapshot.Codec, error) {
	key := config.StorageSection{EncryptionKey: c.String("key")}.EncryptionKeyBytes()
	cipher, err := snapshot.NewCipher(key)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitFailure)
	}
	return snapshot.NewCodec(snapshot.WithCipher(cipher)), nil
}

// writeAtomic writes data to a temp file next to path and renames it in place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tuamail-upgrade-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0o600)
	}
	if err == nil {
		err = os.Rename(name, path)
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
