package broker

import "testing"

func TestNamespaceSubjectName(t *testing.T) {
	if got := Namespace("").SubjectName("blocks.1"); got != "blocks.1" {
		t.Errorf("expected unprefixed subject, got %q", got)
	}
	if got := Namespace("ns").SubjectName("blocks.1"); got != "ns.blocks.1" {
		t.Errorf("expected ns.blocks.1, got %q", got)
	}
}

func TestNamespaceQueueName(t *testing.T) {
	if got := Namespace("").QueueName("blocks"); got != "blocks" {
		t.Errorf("expected unprefixed queue name, got %q", got)
	}
	if got := Namespace("ns").QueueName("blocks"); got != "ns_blocks" {
		t.Errorf("expected ns_blocks, got %q", got)
	}
}

func TestStreamAndConsumerNames(t *testing.T) {
	if got := StreamName("ns"); got != "ns_blocks" {
		t.Errorf("expected ns_blocks, got %q", got)
	}
	if got := ConsumerName("ns"); got != "ns_block-executors" {
		t.Errorf("expected ns_block-executors, got %q", got)
	}
}
