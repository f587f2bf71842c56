package diskx_test

import (
	"context"
	"fmt"
	"os"

	"github.com/gostratum/diskx"
	"github.com/gostratum/diskx/registry"
)

// Example builds a registry with a single local disk and round-trips a file.
// In real apps the configuration is bound through configx and the registry
// comes from registry.Module().
func Example() {
	root, err := os.MkdirTemp("", "diskx-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(root)

	cfg := &diskx.Config{Default: "local"}
	cfg.AddDisk("local", diskx.NewDiskConfig(diskx.DriverLocal, map[string]string{
		"root": root,
		"url":  "https://files.example.com",
	}))

	ctx := context.Background()
	disks, err := registry.Build(ctx, cfg)
	if err != nil {
		panic(err)
	}

	disk := disks.MustDisk()
	if err := diskx.PutBytes(ctx, disk, "docs/readme.txt", []byte("hello"), nil); err != nil {
		panic(err)
	}

	data, _ := diskx.ReadAll(ctx, disk, "docs/readme.txt")
	entries, _ := disk.ListContents(ctx, "docs")

	fmt.Println(string(data))
	fmt.Println(entries)
	fmt.Println(disk.URL("docs/readme.txt"))

	// Output:
	// hello
	// [docs/readme.txt]
	// https://files.example.com/docs/readme.txt
}

func ExampleDefaultConfig() {
	cfg := diskx.DefaultConfig()

	fmt.Println(cfg.Default, cfg.Names())

	// Output:
	// local [local]
}
