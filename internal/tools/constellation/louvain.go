package constellation

import (
	"hash/fnv"
	"math/rand"
	"sort"
)

type neighbor struct {
	node   int
	weight float64
}

type louvainGraph struct {
	adjacency   [][]neighbor
	degree      []float64
	loops       []float64
	totalWeight float64
}

type louvainStatus struct {
	nodeCommunity     []int
	communityDegree   []float64
	communityInternal []float64
	nodeDegree        []float64
	loops             []float64
	totalWeight       float64
}

type neighborAccumulator struct {
	weights map[int]float64
	keys    []int
}

// Seed makes cluster assignment reproducible between exports.
const Seed = 42

const maxClusterCount = 12

var resolutionCandidates = []float64{1.6, 1.3, 1.0, 0.8}

// communities assigns every key a dense cluster id. Only edges between known
// keys count; edge kind and direction are ignored.
func communities(keys []string, edges []Edge, seed int64) map[string]int {
	if len(keys) == 0 {
		return map[string]int{}
	}
	rng := rand.New(rand.NewSource(seed))

	indexByKey := make(map[string]int, len(keys))
	for i, key := range keys {
		indexByKey[key] = i
	}

	graph := buildGraph(len(keys), indexByKey, edges)

	desired := len(keys) / 15
	if desired > maxClusterCount {
		desired = maxClusterCount
	}
	if desired < 2 {
		desired = 2
	}
	if desired > len(keys) {
		desired = len(keys)
	}

	var partition []int
	unique := 0
	for i, resolution := range resolutionCandidates {
		partition = louvain(graph, resolution, rng)
		if len(partition) == 0 {
			break
		}
		unique = countUnique(partition)
		if unique >= desired || i == len(resolutionCandidates)-1 {
			break
		}
	}

	if len(partition) > 0 && unique < desired {
		resolution := resolutionCandidates[0]
		for attempts := 0; attempts < 4 && unique < desired; attempts++ {
			resolution *= 1.5
			partition = louvain(graph, resolution, rng)
			if len(partition) == 0 {
				break
			}
			unique = countUnique(partition)
		}
	}

	if len(partition) == 0 || unique < desired {
		return fallbackClusters(keys, desired)
	}

	result := make(map[string]int, len(keys))
	for key, idx := range indexByKey {
		result[key] = partition[idx]
	}
	return result
}

// buildGraph folds edges into a weighted undirected graph. Neighbour lists
// are sorted so a seeded run visits them in a fixed order.
func buildGraph(nodeCount int, indexByKey map[string]int, edges []Edge) louvainGraph {
	adjTemp := make([]map[int]float64, nodeCount)
	degree := make([]float64, nodeCount)
	loops := make([]float64, nodeCount)
	var totalWeight float64

	for _, edge := range edges {
		src, okSrc := indexByKey[edge.Source]
		dst, okDst := indexByKey[edge.Target]
		if !okSrc || !okDst {
			continue
		}
		if src == dst {
			loops[src]++
			totalWeight++
			continue
		}

		if adjTemp[src] == nil {
			adjTemp[src] = make(map[int]float64)
		}
		if adjTemp[dst] == nil {
			adjTemp[dst] = make(map[int]float64)
		}

		adjTemp[src][dst]++
		adjTemp[dst][src]++
		degree[src]++
		degree[dst]++
		totalWeight++
	}

	return louvainGraph{
		adjacency:   sortedAdjacency(adjTemp),
		degree:      degree,
		loops:       loops,
		totalWeight: totalWeight,
	}
}

func sortedAdjacency(adjTemp []map[int]float64) [][]neighbor {
	adjacency := make([][]neighbor, len(adjTemp))
	for node, neighbors := range adjTemp {
		if len(neighbors) == 0 {
			continue
		}
		adjList := make([]neighbor, 0, len(neighbors))
		for target, weight := range neighbors {
			adjList = append(adjList, neighbor{node: target, weight: weight})
		}
		sort.Slice(adjList, func(i, j int) bool { return adjList[i].node < adjList[j].node })
		adjacency[node] = adjList
	}
	return adjacency
}

func louvain(graph louvainGraph, resolution float64, rng *rand.Rand) []int {
	if len(graph.adjacency) == 0 {
		return []int{}
	}

	status := initStatus(graph)
	dendrogram := make([][]int, 0, 4)
	acc := newNeighborAccumulator()

	for {
		moved := oneLevel(graph, status, acc, resolution, rng)
		partition := renumber(status.nodeCommunity)
		dendrogram = append(dendrogram, partition)
		if !moved {
			break
		}
		graph = inducedGraph(partition, graph)
		status = initStatus(graph)
	}

	return renumber(partitionAtLevel(dendrogram, len(dendrogram)-1))
}

func initStatus(graph louvainGraph) *louvainStatus {
	n := len(graph.adjacency)
	status := &louvainStatus{
		nodeCommunity:     make([]int, n),
		communityDegree:   make([]float64, n),
		communityInternal: make([]float64, n),
		nodeDegree:        graph.degree,
		loops:             graph.loops,
		totalWeight:       graph.totalWeight,
	}
	for i := 0; i < n; i++ {
		status.nodeCommunity[i] = i
		status.communityDegree[i] = graph.degree[i]
		status.communityInternal[i] = graph.loops[i]
	}
	return status
}

// oneLevel moves nodes between communities until no single move improves
// modularity. It reports whether anything moved.
func oneLevel(graph louvainGraph, status *louvainStatus, acc *neighborAccumulator, resolution float64, rng *rand.Rand) bool {
	n := len(graph.adjacency)
	if n == 0 {
		return false
	}

	nodes := rng.Perm(n)
	movedAny := false

	for improved := true; improved; {
		improved = false
		for _, node := range nodes {
			current := status.nodeCommunity[node]
			nodeDegree := status.nodeDegree[node]
			weights := neighborCommunities(node, graph, status, acc)
			status.remove(node, current, weights.get(current))

			best := current
			bestGain := 0.0
			m2 := 2 * status.totalWeight
			if nodeDegree > 0 && m2 > 0 {
				for _, community := range weights.keys {
					gain := weights.weights[community] - (resolution*status.communityDegree[community]*nodeDegree)/m2
					if gain > bestGain {
						bestGain = gain
						best = community
					}
				}
			}

			status.insert(node, best, weights.get(best))
			if best != current {
				improved = true
				movedAny = true
			}
		}
	}

	return movedAny
}

func neighborCommunities(node int, graph louvainGraph, status *louvainStatus, acc *neighborAccumulator) *neighborAccumulator {
	acc.reset()
	for _, nb := range graph.adjacency[node] {
		if nb.node == node {
			continue
		}
		community := status.nodeCommunity[nb.node]
		if community == -1 {
			continue
		}
		acc.add(community, nb.weight)
	}
	return acc
}

func (s *louvainStatus) remove(node, community int, weightInCommunity float64) {
	s.communityDegree[community] -= s.nodeDegree[node]
	s.communityInternal[community] -= 2*weightInCommunity + s.loops[node]
	s.nodeCommunity[node] = -1
}

func (s *louvainStatus) insert(node, community int, weightInCommunity float64) {
	s.nodeCommunity[node] = community
	s.communityDegree[community] += s.nodeDegree[node]
	s.communityInternal[community] += 2*weightInCommunity + s.loops[node]
}

func renumber(partition []int) []int {
	mapping := make(map[int]int, len(partition))
	result := make([]int, len(partition))
	next := 0
	for idx, community := range partition {
		id, ok := mapping[community]
		if !ok {
			id = next
			mapping[community] = id
			next++
		}
		result[idx] = id
	}
	return result
}

// inducedGraph collapses each community into a single node.
func inducedGraph(partition []int, graph louvainGraph) louvainGraph {
	if len(partition) == 0 {
		return louvainGraph{}
	}

	numCommunities := 0
	for _, community := range partition {
		if community+1 > numCommunities {
			numCommunities = community + 1
		}
	}

	adjTemp := make([]map[int]float64, numCommunities)
	degree := make([]float64, numCommunities)
	loops := make([]float64, numCommunities)
	var totalWeight float64

	for node, neighbors := range graph.adjacency {
		commA := partition[node]
		for _, nb := range neighbors {
			if nb.node < node {
				continue
			}
			commB := partition[nb.node]
			weight := nb.weight

			if commA == commB {
				loops[commA] += weight
				degree[commA] += 2 * weight
			} else {
				if adjTemp[commA] == nil {
					adjTemp[commA] = make(map[int]float64)
				}
				if adjTemp[commB] == nil {
					adjTemp[commB] = make(map[int]float64)
				}
				adjTemp[commA][commB] += weight
				adjTemp[commB][commA] += weight
				degree[commA] += weight
				degree[commB] += weight
			}
			totalWeight += weight
		}
	}
	for node, loop := range graph.loops {
		if loop > 0 {
			loops[partition[node]] += loop
			degree[partition[node]] += 2 * loop
			totalWeight += loop
		}
	}

	return louvainGraph{
		adjacency:   sortedAdjacency(adjTemp),
		degree:      degree,
		loops:       loops,
		totalWeight: totalWeight,
	}
}

func partitionAtLevel(dendrogram [][]int, level int) []int {
	if len(dendrogram) == 0 || level < 0 {
		return []int{}
	}
	if level >= len(dendrogram) {
		level = len(dendrogram) - 1
	}

	result := append([]int(nil), dendrogram[0]...)
	for i := 1; i <= level; i++ {
		next := dendrogram[i]
		for idx := range result {
			result[idx] = next[result[idx]]
		}
	}
	return result
}

func newNeighborAccumulator() *neighborAccumulator {
	return &neighborAccumulator{
		weights: make(map[int]float64, 8),
		keys:    make([]int, 0, 8),
	}
}

func (acc *neighborAccumulator) reset() {
	for _, key := range acc.keys {
		delete(acc.weights, key)
	}
	acc.keys = acc.keys[:0]
}

func (acc *neighborAccumulator) add(key int, weight float64) {
	if _, ok := acc.weights[key]; !ok {
		acc.weights[key] = weight
		acc.keys = append(acc.keys, key)
		return
	}
	acc.weights[key] += weight
}

func (acc *neighborAccumulator) get(key int) float64 {
	return acc.weights[key]
}

func countUnique(values []int) int {
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// fallbackClusters hashes keys into buckets when modularity cannot produce
// enough communities. Ids are dense in sorted key order.
func fallbackClusters(keys []string, desired int) map[string]int {
	result := make(map[string]int, len(keys))
	if len(keys) == 0 {
		return result
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	if desired >= len(sorted) {
		for idx, key := range sorted {
			result[key] = idx
		}
		return result
	}

	hasher := fnv.New32a()
	dense := make(map[uint32]int, desired)
	for _, key := range sorted {
		hasher.Reset()
		_, _ = hasher.Write([]byte(key))
		bucket := hasher.Sum32() % uint32(desired)
		id, ok := dense[bucket]
		if !ok {
			id = len(dense)
			dense[bucket] = id
		}
		result[key] = id
	}
	return result
}
