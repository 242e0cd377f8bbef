// Seed program: builds a demo relation of generated person records and one
// index per attribute kind over it.
//
// Run: go run ./cmd/seed -dir demo -n 5000
// Then inspect: go run ./cmd/inspect demo/people.10
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/go-faker/faker/v4"

	"BurrowDB/btree"
	"BurrowDB/bufmgr"
	"BurrowDB/heapfile"
	"BurrowDB/types"
)

// Record layout: name [0:10), age int32 [10:14), score float64 [14:22).
const (
	nameOffset  = 0
	ageOffset   = 10
	scoreOffset = 14
	recordSize  = 22
)

func main() {
	dir := flag.String("dir", "demo", "directory for the relation and index files")
	n := flag.Int("n", 5000, "number of records to generate")
	seed := flag.Int64("seed", 1, "PRNG seed for ages and scores")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	bm, err := bufmgr.New(256)
	if err != nil {
		log.Fatalf("buffer manager: %v", err)
	}

	rel, err := heapfile.Open(filepath.Join(*dir, "people.rel"), bm)
	if err != nil {
		log.Fatalf("heap file: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	record := make([]byte, recordSize)
	for i := 0; i < *n; i++ {
		name := faker.FirstName()
		for j := nameOffset; j < nameOffset+types.StringSize; j++ {
			record[j] = 0
		}
		copy(record[nameOffset:nameOffset+types.StringSize], name)
		binary.LittleEndian.PutUint32(record[ageOffset:], uint32(18+rng.Intn(80)))
		binary.LittleEndian.PutUint64(record[scoreOffset:], math.Float64bits(rng.Float64()*100))
		if _, err := rel.Append(record); err != nil {
			log.Fatalf("append record %d: %v", i, err)
		}
	}
	fmt.Printf("relation %s: %d records\n", rel.Path(), *n)

	for _, attr := range []struct {
		offset int
		kind   types.Datatype
	}{
		{ageOffset, types.Integer},
		{scoreOffset, types.Double},
		{nameOffset, types.String},
	} {
		ix, err := btree.Open(btree.Config{
			RelationName: "people",
			AttrOffset:   attr.offset,
			AttrKind:     attr.kind,
			Dir:          *dir,
			Buf:          bm,
			Records:      rel.NewScanner(),
		})
		if err != nil {
			log.Fatalf("build %s index: %v", attr.kind, err)
		}
		fmt.Printf("index %s: %s keys at offset %d\n", ix.Name(), attr.kind, attr.offset)
		if err := ix.Close(); err != nil {
			log.Fatalf("close %s index: %v", attr.kind, err)
		}
	}

	if err := rel.Close(); err != nil {
		log.Fatalf("close relation: %v", err)
	}
}
