package lock

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/catamtz3/cse444-simpledb/testutil"
)

func TestMain(m *testing.M) {
	flag.Parse()

	err := testutil.CleanDir("testdata", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	testutil.SetupLogger(filepath.Join("testdata", "lock_test.log"))

	os.Exit(m.Run())
}
