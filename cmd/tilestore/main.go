// Command tilestore is a thin CLI shim over the query package. The
// iterator core has no CLI surface of its own; this binary exists purely
// to exercise query operators against a storage/memsm array for manual
// inspection.
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/quietcells/tilestore/array"
	"github.com/quietcells/tilestore/query"
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage/memsm"
	"github.com/quietcells/tilestore/storage/tiledbsm"
	"github.com/quietcells/tilestore/tile"
)

func main() {
	app := &cli.App{
		Name:  "tilestore",
		Usage: "inspect a demo tiled array through the query operators",
		Commands: []*cli.Command{
			scanCommand(),
			subarrayCommand(),
			knnCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// demoSchema builds a two-dimensional int32-coordinate schema with a
// single int32 attribute.
func demoSchema() (*schema.Schema, error) {
	dims := []schema.Dimension{
		{Name: "x", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(9)},
		{Name: "y", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(9)},
	}
	attrs := []schema.Attribute{{Name: "value", Kind: schema.Int32, ValNum: 1}}
	return schema.New(dims, attrs, 4, schema.Irregular)
}

type demoCell struct {
	x, y, value int32
}

// demoArray opens an in-memory array and writes two fragments: fragment 0
// is overwritten at (1,1) by fragment 1, so a scan shows the
// later-fragment-wins overlay.
func demoArray() (*array.Array, error) {
	sch, err := demoSchema()
	if err != nil {
		return nil, err
	}
	mgr := memsm.New(memsm.Config{})
	arr, err := array.Open(mgr, sch)
	if err != nil {
		return nil, err
	}
	if err := mgr.RegisterFragment(arr.Desc, 0); err != nil {
		return nil, err
	}
	if err := mgr.RegisterFragment(arr.Desc, 1); err != nil {
		return nil, err
	}
	if err := writeFragment(mgr, arr, 0, []demoCell{{1, 1, 10}, {1, 2, 20}, {2, 1, 30}}); err != nil {
		return nil, err
	}
	if err := writeFragment(mgr, arr, 1, []demoCell{{1, 1, 99}}); err != nil {
		return nil, err
	}
	return arr, nil
}

func writeFragment(mgr *memsm.Manager, arr *array.Array, fragmentID uint64, cells []demoCell) error {
	sch := arr.Schema
	coordSize := sch.CoordKind().Size()
	coordBuf := make([]byte, 0, len(cells)*2*coordSize)
	valueBuf := make([]byte, 0, len(cells)*4)
	for _, c := range cells {
		coordBuf = append(coordBuf, schema.I32.EncodeNativeValue(float64(c.x))...)
		coordBuf = append(coordBuf, schema.I32.EncodeNativeValue(float64(c.y))...)
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], uint32(c.value))
		valueBuf = append(valueBuf, v[:]...)
	}

	ct, err := tile.NewCoordsTile(0, sch.DimNum(), sch.CoordKind())
	if err != nil {
		return err
	}
	if err := ct.SetPayload(coordBuf); err != nil {
		return err
	}
	mbr, first, last, err := coordBoundsFor(sch, cells)
	if err != nil {
		return err
	}
	if err := ct.SetMBR(mbr); err != nil {
		return err
	}
	if err := ct.SetBoundingCoordinates(first, last); err != nil {
		return err
	}
	if err := mgr.AppendTile(arr.Desc, fragmentID, sch.CoordsID(), ct); err != nil {
		return err
	}

	at, err := tile.NewAttrTile(0, schema.Int32, 1)
	if err != nil {
		return err
	}
	if err := at.SetPayload(valueBuf); err != nil {
		return err
	}
	return mgr.AppendTile(arr.Desc, fragmentID, 0, at)
}

func coordBoundsFor(sch *schema.Schema, cells []demoCell) (mbr, first, last []byte, err error) {
	loX, hiX := cells[0].x, cells[0].x
	loY, hiY := cells[0].y, cells[0].y
	for _, c := range cells {
		if c.x < loX {
			loX = c.x
		}
		if c.x > hiX {
			hiX = c.x
		}
		if c.y < loY {
			loY = c.y
		}
		if c.y > hiY {
			hiY = c.y
		}
	}
	mbr = append(mbr, schema.I32.EncodeNativeValue(float64(loX))...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(float64(hiX))...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(float64(loY))...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(float64(hiY))...)
	first = append(first, schema.I32.EncodeNativeValue(float64(cells[0].x))...)
	first = append(first, schema.I32.EncodeNativeValue(float64(cells[0].y))...)
	n := len(cells) - 1
	last = append(last, schema.I32.EncodeNativeValue(float64(cells[n].x))...)
	last = append(last, schema.I32.EncodeNativeValue(float64(cells[n].y))...)
	return mbr, first, last, nil
}

func decodeCell(sch *schema.Schema, buf []byte) (x, y, value int32) {
	sz := sch.CoordKind().Size()
	x = int32(sch.CoordKind().DecodeNativeValue(buf[0:sz]))
	y = int32(sch.CoordKind().DecodeNativeValue(buf[sz : 2*sz]))
	value = int32(binary.LittleEndian.Uint32(buf[2*sz : 2*sz+4]))
	return
}

// openScanArray picks the scan backend: the in-memory demo array by
// default, or a real TileDB array via storage/tiledbsm when a URI is given
// (the latter requires the binary to have been built with -tags tiledb).
func openScanArray(uri, configURI string) (*array.Array, error) {
	if uri == "" {
		return demoArray()
	}
	mgr, err := tiledbsm.New(tiledbsm.Config{URI: uri, ConfigURI: configURI})
	if err != nil {
		return nil, err
	}
	sch, err := demoSchema()
	if err != nil {
		return nil, err
	}
	return array.Open(mgr, sch)
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "print every cell in global order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tiledb-uri", Usage: "scan a TileDB array at this URI instead of the in-memory demo (requires a build with -tags tiledb)"},
			&cli.StringFlag{Name: "tiledb-config", Usage: "optional TileDB config URI"},
		},
		Action: func(c *cli.Context) error {
			arr, err := openScanArray(c.String("tiledb-uri"), c.String("tiledb-config"))
			if err != nil {
				return err
			}
			mi, err := array.New(arr, array.Config{})
			if err != nil {
				return err
			}
			var rows []map[string]int32
			for mi.Next() {
				x, y, v := decodeCell(arr.Schema, mi.Cell())
				rows = append(rows, map[string]int32{"x": x, "y": y, "value": v})
			}
			if err := mi.Err(); err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
}

func subarrayCommand() *cli.Command {
	return &cli.Command{
		Name:      "subarray",
		Usage:     "restrict the scan to a coordinate range",
		ArgsUsage: "loX loY hiX hiY",
		Action: func(c *cli.Context) error {
			bounds, err := parseInts(c.Args().Slice(), 4)
			if err != nil {
				return err
			}
			arr, err := demoArray()
			if err != nil {
				return err
			}
			rng := make([]byte, 0, 16)
			rng = append(rng, schema.I32.EncodeNativeValue(float64(bounds[0]))...)
			rng = append(rng, schema.I32.EncodeNativeValue(float64(bounds[2]))...)
			rng = append(rng, schema.I32.EncodeNativeValue(float64(bounds[1]))...)
			rng = append(rng, schema.I32.EncodeNativeValue(float64(bounds[3]))...)

			mgr := memsm.New(memsm.Config{})
			outSch, err := demoSchema()
			if err != nil {
				return err
			}
			outArr, err := array.Open(mgr, outSch)
			if err != nil {
				return err
			}
			builder := query.NewResultBuilder(mgr, outArr.Desc, outSch, 0, outSch.AllAttrIDs())
			if err := query.Subarray(arr, rng, outSch.AllAttrIDs(), builder); err != nil {
				return err
			}
			if err := builder.Close(); err != nil {
				return err
			}

			readMi, err := array.New(outArr, array.Config{})
			if err != nil {
				return err
			}
			var rows []map[string]int32
			for readMi.Next() {
				x, y, v := decodeCell(outArr.Schema, readMi.Cell())
				rows = append(rows, map[string]int32{"x": x, "y": y, "value": v})
			}
			if err := readMi.Err(); err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
}

func knnCommand() *cli.Command {
	return &cli.Command{
		Name:      "knn",
		Usage:     "k nearest neighbors of a query point",
		ArgsUsage: "x y k",
		Action: func(c *cli.Context) error {
			args, err := parseInts(c.Args().Slice(), 3)
			if err != nil {
				return err
			}
			arr, err := demoArray()
			if err != nil {
				return err
			}
			fragIDs, err := arr.FragmentIDs()
			if err != nil {
				return err
			}
			hits, err := query.KNN(arr.Manager, arr.Desc, arr.Schema, fragIDs,
				[]float64{float64(args[0]), float64(args[1])}, int(args[2]), 2)
			if err != nil {
				return err
			}
			return printJSON(hits)
		},
	}
}

func parseInts(args []string, n int) ([]int32, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d (%s)", n, len(args), strings.Join(args, " "))
	}
	out := make([]int32, n)
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}
	return out, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
