// Package tree defines the append-only record store that holds a
// configuration tree.
//
// Every node is addressed by a Handle and carries a Node record (its path and
// generation). Other records are attached by type: parent and child links,
// root markers, relevance links, scalar values, and whatever a manager
// attaches at spawn time. Consumers reach records through a Query, which
// declares up front the record kinds it reads and writes so that unrelated
// consumers can run at the same time.
package tree
