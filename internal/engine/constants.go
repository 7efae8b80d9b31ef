package engine

// dbCollectionName is the distinguished collection that holds
// index-configuration documents (§4.1 index(), §6.2): one document per
// collection that has ever had secondary fields registered.
const dbCollectionName = "_db"
