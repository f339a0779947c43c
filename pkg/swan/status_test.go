package swan

import (
	"testing"

	"github.com/luscis/ipsecman/pkg/models"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici/vicitest"
	"github.com/stretchr/testify/assert"
)

func TestReconcileDefaults(t *testing.T) {
	status := Reconcile([]string{"a", "b"}, nil)
	assert.Equal(t, 2, len(status), "be the same.")
	assert.Equal(t, schema.ConnectionStatus{Name: "a", State: schema.StateNotEstablished}, status["a"], "be the same.")
	assert.Equal(t, schema.ConnectionStatus{Name: "b", State: schema.StateNotEstablished}, status["b"], "be the same.")

	status = Reconcile(nil, []*models.IkeSa{{Name: "a", Data: vicitest.NewSA(10)}})
	assert.Equal(t, 0, len(status), "be the same.")
}

func TestReconcileAggregate(t *testing.T) {
	sas := []*models.IkeSa{
		{Name: "zero", Data: vicitest.NewSA(5)},
		{Name: "one", Data: vicitest.NewSA(60, [4]uint64{100, 200, 1, 2})},
		{Name: "three", Data: vicitest.NewSA(3600,
			[4]uint64{10, 20, 1, 2},
			[4]uint64{30, 40, 3, 4},
			[4]uint64{50, 60, 5, 6})},
		{Name: "orphan", Data: vicitest.NewSA(7, [4]uint64{9, 9, 9, 9})},
	}
	status := Reconcile([]string{"zero", "one", "three", "idle"}, sas)
	assert.Equal(t, 4, len(status), "be the same.")

	zero := status["zero"]
	assert.Equal(t, schema.StateEstablished, zero.State, "be the same.")
	assert.Equal(t, int64(5), zero.EstablishedTime, "be the same.")
	assert.Equal(t, uint64(0), zero.BytesIn, "be the same.")

	one := status["one"]
	assert.Equal(t, uint64(100), one.BytesIn, "be the same.")
	assert.Equal(t, uint64(200), one.BytesOut, "be the same.")
	assert.Equal(t, uint64(1), one.PacketsIn, "be the same.")
	assert.Equal(t, uint64(2), one.PacketsOut, "be the same.")

	three := status["three"]
	assert.Equal(t, int64(3600), three.EstablishedTime, "be the same.")
	assert.Equal(t, uint64(90), three.BytesIn, "be the same.")
	assert.Equal(t, uint64(120), three.BytesOut, "be the same.")
	assert.Equal(t, uint64(9), three.PacketsIn, "be the same.")
	assert.Equal(t, uint64(12), three.PacketsOut, "be the same.")

	assert.Equal(t, schema.StateNotEstablished, status["idle"].State, "be the same.")
	_, ok := status["orphan"]
	assert.False(t, ok, "dropped")
}

func TestReconcileRepeatedName(t *testing.T) {
	sas := []*models.IkeSa{
		{Name: "a", Data: vicitest.NewSA(30, [4]uint64{1, 1, 1, 1})},
		{Name: "a", Data: vicitest.NewSA(90, [4]uint64{2, 2, 2, 2})},
	}
	status := Reconcile([]string{"a", "a"}, sas)
	assert.Equal(t, 1, len(status), "be the same.")
	assert.Equal(t, int64(90), status["a"].EstablishedTime, "be the same.")
	assert.Equal(t, uint64(3), status["a"].BytesIn, "be the same.")
}

func TestSortStatus(t *testing.T) {
	items := SortStatus(Reconcile([]string{"c", "a", "b"}, nil))
	assert.Equal(t, "a", items[0].Name, "be the same.")
	assert.Equal(t, "c", items[2].Name, "be the same.")
}
